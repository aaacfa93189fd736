// 配置文件变更监听器。
//
// 轮询文件修改时间，防抖后重新加载并校验，成功时回调新配置。
package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Watcher 监听配置文件并在变更后重新加载.
type Watcher struct {
	mu sync.Mutex

	loader        *Loader
	pollInterval  time.Duration
	debounceDelay time.Duration

	running bool
	stop    chan struct{}
	pending *time.Timer

	lastMod time.Time
	exists  bool

	callbacks []func(*Config)
	logger    *zap.Logger
}

// WatcherOption 配置 Watcher
type WatcherOption func(*Watcher)

// WithPollInterval 设置轮询间隔
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithDebounceDelay 设置防抖延迟
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithWatcherLogger 设置日志
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher 为 loader 的配置文件创建监听器
func NewWatcher(loader *Loader, opts ...WatcherOption) (*Watcher, error) {
	if loader == nil || loader.ConfigPath() == "" {
		return nil, fmt.Errorf("config watcher requires a config path")
	}
	w := &Watcher{
		loader:        loader,
		pollInterval:  time.Second,
		debounceDelay: 100 * time.Millisecond,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "config_watcher"), zap.String("path", loader.ConfigPath()))

	if info, err := os.Stat(loader.ConfigPath()); err == nil {
		w.lastMod, w.exists = info.ModTime(), true
	} else if os.IsNotExist(err) {
		w.logger.Warn("config file does not exist, will watch for creation")
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", loader.ConfigPath(), err)
	}
	return w, nil
}

// OnReload 注册重新加载成功后的回调
func (w *Watcher) OnReload(cb func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start 开始轮询；ctx 取消或 Stop 后退出
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.stop = make(chan struct{})

	go w.pollLoop(ctx, w.stop)

	w.logger.Info("config watcher started", zap.Duration("poll_interval", w.pollInterval))
	return nil
}

// Stop 停止轮询并取消未触发的重新加载
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stop)
	if w.pending != nil {
		w.pending.Stop()
	}
	w.running = false
	w.logger.Info("config watcher stopped")
}

// IsRunning 返回是否在运行
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) pollLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if w.changed() {
				w.schedule()
			}
		}
	}
}

// changed 比较修改时间；删除不触发重新加载
func (w *Watcher) changed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(w.loader.ConfigPath())
	if err != nil {
		w.exists = false
		return false
	}
	if w.exists && !info.ModTime().After(w.lastMod) {
		return false
	}
	w.lastMod, w.exists = info.ModTime(), true
	return true
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounceDelay, func() { _ = w.reload() })
}

// reload 加载并校验新配置，失败时保留旧配置
func (w *Watcher) reload() error {
	cfg, err := w.loader.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.logger.Error("config reload rejected", zap.Error(err))
		return err
	}

	w.mu.Lock()
	callbacks := append(([]func(*Config))(nil), w.callbacks...)
	w.mu.Unlock()

	w.logger.Info("config reloaded", zap.Int("providers", len(cfg.Providers)))
	for _, cb := range callbacks {
		cb(cfg)
	}
	return nil
}
