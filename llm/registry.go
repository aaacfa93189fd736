package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Constructor 构造某个后端的 Provider 实例。
type Constructor func(logger *zap.Logger) (Provider, error)

// Registry 把后端标识绑定到构造函数，并按标识缓存构造出的实例。
// 同一标识在 Registry 生命周期内至多构造一次（重新注册会使缓存失效）。
type Registry struct {
	constructors map[InferenceName]Constructor
	instances    map[InferenceName]Provider
	generations  map[InferenceName]uint64
	middlewares  []ProviderMiddleware
	group        singleflight.Group
	logger       *zap.Logger
	mu           sync.RWMutex
}

// RegistryOption 配置 Registry。
type RegistryOption func(*Registry)

// WithLogger 设置日志。
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMiddleware 在实例构造后按顺序应用装饰器（第一个在最外层）。
func WithMiddleware(mws ...ProviderMiddleware) RegistryOption {
	return func(r *Registry) {
		r.middlewares = append(r.middlewares, mws...)
	}
}

// NewRegistry 创建空 Registry。
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		constructors: make(map[InferenceName]Constructor),
		instances:    make(map[InferenceName]Provider),
		generations:  make(map[InferenceName]uint64),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "registry"))
	return r
}

// Register 添加或替换构造函数；同一标识以最后一次注册为准。
func (r *Registry) Register(name InferenceName, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = ctor
	delete(r.instances, name)
	r.generations[name]++
}

// Unregister 移除构造函数与缓存实例。
func (r *Registry) Unregister(name InferenceName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.constructors, name)
	delete(r.instances, name)
	r.generations[name]++
}

// Names 返回已注册标识（排序）。
func (r *Registry) Names() []InferenceName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]InferenceName, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Len 返回已注册数量。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.constructors)
}

// Resolve 返回缓存实例，首次使用时构造并缓存。
// 未注册的标识直接返回 ErrUnknownBackend，不做默认回退。
func (r *Registry) Resolve(name InferenceName) (Provider, error) {
	r.mu.RLock()
	if p, ok := r.instances[name]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	ctor, ok := r.constructors[name]
	gen := r.generations[name]
	r.mu.RUnlock()

	if !ok {
		return nil, NewError(ErrUnknownBackend, fmt.Sprintf("unknown inference backend %q", name))
	}

	v, err, _ := r.group.Do(fmt.Sprintf("%s#%d", name, gen), func() (interface{}, error) {
		r.mu.RLock()
		if p, ok := r.instances[name]; ok {
			r.mu.RUnlock()
			return p, nil
		}
		r.mu.RUnlock()

		p, err := ctor(r.logger)
		if err != nil {
			return nil, fmt.Errorf("construct %s: %w", name, err)
		}
		for i := len(r.middlewares) - 1; i >= 0; i-- {
			p = r.middlewares[i](p)
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		// 构造期间被重新注册时不写入过期实例
		if r.generations[name] == gen {
			r.instances[name] = p
		}
		r.logger.Debug("backend constructed", zap.String("backend", string(name)))
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Provider), nil
}

// Dispatch 解析实例并发起一次结构化输出请求。这是唯一的上行调用面。
func (r *Registry) Dispatch(ctx context.Context, name InferenceName, params OutlineParams, model string, credentials ...string) (*Result, error) {
	p, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return p.OutlineCompletion(ctx, params, NewExecution(name, model, credentials...))
}
