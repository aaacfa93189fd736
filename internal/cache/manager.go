package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config Redis 连接。Addr 可以是逗号分隔的多个地址（集群），
// 设置 MasterName 时按哨兵模式连接。
type Config struct {
	Addr                string        `yaml:"addr" json:"addr" env:"ADDR"`
	MasterName          string        `yaml:"master_name" json:"master_name,omitempty" env:"MASTER_NAME"`
	Password            string        `yaml:"password" json:"-" env:"PASSWORD"`
	DB                  int           `yaml:"db" json:"db" env:"DB"`
	MaxRetries          int           `yaml:"max_retries" json:"max_retries" env:"MAX_RETRIES"`
	PoolSize            int           `yaml:"pool_size" json:"pool_size" env:"POOL_SIZE"`
	MinIdleConns        int           `yaml:"min_idle_conns" json:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"` // 0 关闭后台检查
}

func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

func (c Config) addrs() []string {
	var out []string
	for _, a := range strings.Split(c.Addr, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

var errClosed = errors.New("redis manager is closed")

// Manager 持有结果缓存共用的 Redis 客户端。
// 后台检查的结果记录在 Healthy 中。
type Manager struct {
	client redis.UniversalClient
	cfg    Config
	logger *zap.Logger

	healthy atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewManager 建立连接，首次 ping 失败时返回错误
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.addrs(),
		MasterName:   cfg.MasterName,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", cfg.Addr, err)
	}

	m := &Manager{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "redis")),
		done:   make(chan struct{}),
	}
	m.healthy.Store(true)
	if cfg.HealthCheckInterval > 0 {
		m.wg.Add(1)
		go m.watch()
	}
	m.logger.Info("redis connected", zap.Strings("addrs", cfg.addrs()), zap.Int("pool_size", cfg.PoolSize))
	return m, nil
}

func (m *Manager) Client() redis.UniversalClient { return m.client }

// Healthy 最近一次后台检查是否成功
func (m *Manager) Healthy() bool { return m.healthy.Load() }

// Ping 直接探测连接
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}
	return m.client.Ping(ctx).Err()
}

// Close 停止后台检查并关闭连接，可重复调用
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	m.wg.Wait()
	m.healthy.Store(false)
	return m.client.Close()
}

func (m *Manager) watch() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := m.Ping(ctx)
		cancel()

		was := m.healthy.Swap(err == nil)
		switch {
		case err != nil && was:
			m.logger.Error("redis became unreachable", zap.Error(err))
		case err == nil && !was:
			m.logger.Info("redis recovered")
		}
	}
}
