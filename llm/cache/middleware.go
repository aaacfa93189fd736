package cache

import (
	"context"
	"errors"

	llmpkg "github.com/BaSui01/jsoninference/llm"
	"go.uber.org/zap"
)

// HitRecorder 接收缓存命中/未命中事件
type HitRecorder interface {
	RecordCacheHit(backend string)
	RecordCacheMiss(backend string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheHit(string)  {}
func (nopRecorder) RecordCacheMiss(string) {}

// cachingProvider 在 Provider 外层查询/写入结果缓存
type cachingProvider struct {
	next     llmpkg.Provider
	cache    *MultiLevelCache
	recorder HitRecorder
	logger   *zap.Logger
}

// Middleware 返回结果缓存装饰器。
// 只缓存成功结果；缓存读写失败只记录日志，不影响调用。
// recorder 可为 nil。
func Middleware(c *MultiLevelCache, logger *zap.Logger, recorder HitRecorder) llmpkg.ProviderMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return func(next llmpkg.Provider) llmpkg.Provider {
		return &cachingProvider{
			next:     next,
			cache:    c,
			recorder: recorder,
			logger:   logger.With(zap.String("component", "cache_middleware"), zap.String("provider", next.Name())),
		}
	}
}

func (p *cachingProvider) Name() string { return p.next.Name() }

func (p *cachingProvider) OutlineCompletion(ctx context.Context, params llmpkg.OutlineParams, exec llmpkg.Execution) (*llmpkg.Result, error) {
	key := p.cache.GenerateKey(NewRequest(params, exec))

	entry, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		p.logger.Debug("cache hit", zap.String("key", key))
		p.recorder.RecordCacheHit(p.next.Name())
		res := entry.Result
		return &res, nil
	case !errors.Is(err, ErrCacheMiss):
		p.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
	}
	p.recorder.RecordCacheMiss(p.next.Name())

	res, err := p.next.OutlineCompletion(ctx, params, exec)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, &Entry{Result: *res, Backend: exec.Backend, Model: exec.Model}); err != nil {
		p.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	}
	return res, nil
}
