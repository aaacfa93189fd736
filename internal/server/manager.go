package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Config 监听与超时设置
type Config struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"` // 覆盖一次获取的全部尝试
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" json:"max_header_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Minute,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 15 * time.Second,
	}
}

type state int

const (
	stateIdle state = iota
	stateServing
	stateClosed
)

// Manager 管理一个 http.Server 的生命周期。
// 所有请求的 context 派生自 base；排空超时后取消 base，
// 仍在重试的获取循环随之退出。
type Manager struct {
	cfg    Config
	srv    *http.Server
	logger *zap.Logger

	base       context.Context
	cancelBase context.CancelFunc
	errCh      chan error

	mu    sync.RWMutex
	state state
	ln    net.Listener
}

func NewManager(handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "http_server")),
		base:       base,
		cancelBase: cancel,
		errCh:      make(chan error, 1),
	}
	m.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return m.base },
		ErrorLog:          zap.NewStdLog(logger.With(zap.String("component", "net/http"))),
	}
	return m
}

// Start 绑定端口并在后台提供服务
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateClosed:
		return errors.New("server is closed")
	case stateServing:
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", m.cfg.Addr, err)
	}
	m.ln = ln
	m.state = stateServing
	m.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	go func() {
		err := m.srv.Serve(ln)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}
		m.logger.Error("serve failed", zap.Error(err))
		select {
		case m.errCh <- err:
		default:
		}
	}()
	return nil
}

// Shutdown 在 ShutdownTimeout 内排空请求，超时后取消剩余请求；可重复调用
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateClosed {
		return nil
	}
	m.state = stateClosed
	defer m.cancelBase()

	drainCtx, cancel := context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := m.srv.Shutdown(drainCtx); err != nil {
		m.logger.Warn("drain incomplete, cancelling in-flight requests", zap.Error(err))
		m.cancelBase()
		_ = m.srv.Close()
		return err
	}
	m.logger.Info("http server stopped", zap.Duration("drain", time.Since(start)))
	return nil
}

// Wait 阻塞到 ctx 取消、SIGINT/SIGTERM 或服务异常退出，然后关闭服务。
// 返回值为服务异常与关闭错误的合并。
func (m *Manager) Wait(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-sigCtx.Done():
		m.logger.Info("shutdown requested", zap.NamedError("reason", context.Cause(sigCtx)))
	case serveErr = <-m.errCh:
	}
	return errors.Join(serveErr, m.Shutdown(context.Background()))
}

// Errors 异步服务错误，最多缓冲一个
func (m *Manager) Errors() <-chan error { return m.errCh }

// Addr 返回实际监听地址，未启动时为配置地址
func (m *Manager) Addr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ln != nil {
		return m.ln.Addr().String()
	}
	return m.cfg.Addr
}

// IsRunning 报告是否尚未关闭
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state != stateClosed
}
