package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	llmpkg "github.com/BaSui01/jsoninference/llm"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrCacheMiss = errors.New("cache miss")

// Entry 缓存条目
type Entry struct {
	Result    llmpkg.Result        `json:"result"`
	Backend   llmpkg.InferenceName `json:"backend"`
	Model     string               `json:"model,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	ExpiresAt time.Time            `json:"expires_at"`
	HitCount  int                  `json:"hit_count"`
}

// Config 缓存配置
type Config struct {
	LocalMaxSize    int           `json:"local_max_size" yaml:"local_max_size" env:"LOCAL_MAX_SIZE"`
	LocalTTL        time.Duration `json:"local_ttl" yaml:"local_ttl" env:"LOCAL_TTL"`
	RedisTTL        time.Duration `json:"redis_ttl" yaml:"redis_ttl" env:"REDIS_TTL"`
	EnableLocal     bool          `json:"enable_local" yaml:"enable_local" env:"ENABLE_LOCAL"`
	EnableRedis     bool          `json:"enable_redis" yaml:"enable_redis" env:"ENABLE_REDIS"`
	KeyStrategyType string        `json:"key_strategy" yaml:"key_strategy" env:"KEY_STRATEGY"` // hash | hierarchical
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		LocalMaxSize:    1000,
		LocalTTL:        5 * time.Minute,
		RedisTTL:        1 * time.Hour,
		EnableLocal:     true,
		EnableRedis:     true,
		KeyStrategyType: "hierarchical",
	}
}

// MultiLevelCache 多级缓存：本地 LRU 作为 L1，Redis 作为 L2
type MultiLevelCache struct {
	local    *LRUCache
	redis    redis.UniversalClient
	config   *Config
	strategy KeyStrategy
	logger   *zap.Logger
}

// NewMultiLevelCache 创建多级缓存；rdb 为 nil 时只使用本地缓存
func NewMultiLevelCache(rdb redis.UniversalClient, config *Config, logger *zap.Logger) *MultiLevelCache {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var local *LRUCache
	if config.EnableLocal {
		local = NewLRUCache(config.LocalMaxSize, config.LocalTTL)
	}

	var strategy KeyStrategy
	switch config.KeyStrategyType {
	case "hash":
		strategy = NewHashKeyStrategy()
	default:
		strategy = NewHierarchicalKeyStrategy()
	}

	logger = logger.With(zap.String("component", "result_cache"))
	logger.Info("result cache initialized",
		zap.String("key_strategy", strategy.Name()),
		zap.Bool("local", local != nil),
		zap.Bool("redis", config.EnableRedis && rdb != nil))

	return &MultiLevelCache{
		local:    local,
		redis:    rdb,
		config:   config,
		strategy: strategy,
		logger:   logger,
	}
}

func (c *MultiLevelCache) redisEnabled() bool {
	return c.config.EnableRedis && c.redis != nil
}

// GenerateKey 按当前策略生成缓存键
func (c *MultiLevelCache) GenerateKey(req Request) string {
	return c.strategy.GenerateKey(req)
}

// Get retrieves from cache. Redis 命中会回填本地缓存
func (c *MultiLevelCache) Get(ctx context.Context, key string) (*Entry, error) {
	if c.local != nil {
		if entry, ok := c.local.Get(key); ok {
			return entry, nil
		}
	}

	if c.redisEnabled() {
		data, err := c.redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var entry Entry
			if err := json.Unmarshal(data, &entry); err != nil {
				c.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
				return nil, ErrCacheMiss
			}
			if c.local != nil {
				c.local.Set(key, &entry)
			}
			return &entry, nil
		case errors.Is(err, redis.Nil):
		default:
			return nil, fmt.Errorf("redis get: %w", err)
		}
	}

	return nil, ErrCacheMiss
}

// Set stores in cache.
func (c *MultiLevelCache) Set(ctx context.Context, key string, entry *Entry) error {
	now := time.Now()
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(c.config.RedisTTL)

	if c.local != nil {
		c.local.Set(key, entry)
	}

	if c.redisEnabled() {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := c.redis.Set(ctx, key, data, c.config.RedisTTL).Err(); err != nil {
			return fmt.Errorf("redis set: %w", err)
		}
	}
	return nil
}

// Delete 删除单个键
func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	if c.local != nil {
		c.local.Delete(key)
	}
	if c.redisEnabled() {
		return c.redis.Del(ctx, key).Err()
	}
	return nil
}

// InvalidateBackend 删除某后端的全部缓存结果（仅分层键策略可按后端定位）
func (c *MultiLevelCache) InvalidateBackend(ctx context.Context, backend llmpkg.InferenceName) (int, error) {
	pattern := BackendPattern(backend)
	deleted := 0
	if c.local != nil {
		deleted += c.local.DeletePrefix(strings.TrimSuffix(pattern, "*"))
	}
	if !c.redisEnabled() {
		return deleted, nil
	}

	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.redis.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("redis del: %w", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Info("backend cache invalidated",
		zap.String("backend", string(backend)),
		zap.Int("deleted", deleted))
	return deleted, nil
}
