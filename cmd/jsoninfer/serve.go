package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/jsoninference/api/handlers"
	"github.com/BaSui01/jsoninference/config"
	"github.com/BaSui01/jsoninference/internal/cache"
	"github.com/BaSui01/jsoninference/internal/metrics"
	"github.com/BaSui01/jsoninference/internal/server"
	"github.com/BaSui01/jsoninference/internal/telemetry"
	"github.com/BaSui01/jsoninference/llm"
	llmcache "github.com/BaSui01/jsoninference/llm/cache"
	"github.com/BaSui01/jsoninference/llm/factory"
	"github.com/BaSui01/jsoninference/llm/observability"
	"github.com/BaSui01/jsoninference/llm/providers"
)

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server exposing POST /v1/generate, GET /v1/backends,
/health, /ready and the Prometheus metrics endpoint.

When --config is given the file is watched and provider settings are
re-applied on change without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loader, err := root.loadConfig()
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			logger.Info("Starting jsoninfer",
				zap.String("version", Version),
				zap.String("build_time", BuildTime),
				zap.String("git_commit", GitCommit),
			)

			srv, err := NewServer(cfg, loader, logger, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			if err := srv.Start(cmd.Context()); err != nil {
				srv.Shutdown()
				return err
			}
			err = srv.httpManager.Wait(cmd.Context())
			srv.Shutdown()
			logger.Info("jsoninfer stopped")
			return err
		},
	}
}

// Server 组装配置、遥测、缓存、后端注册表与 HTTP 服务
type Server struct {
	cfg    *config.Config
	loader *config.Loader
	logger *zap.Logger

	telemetry   *telemetry.Providers
	collector   *metrics.Collector
	gatherer    prometheus.Gatherer
	cacheMgr    *cache.Manager
	registry    *llm.Registry
	providerOps []providers.Option
	watcher     *config.Watcher
	handler     http.Handler
	httpManager *server.Manager

	cancel context.CancelFunc
}

// NewServer 构建全部依赖但不监听端口；reg 为 Prometheus 注册器（测试中传入独立 Registry）
func NewServer(cfg *config.Config, loader *config.Loader, logger *zap.Logger, reg prometheus.Registerer) (*Server, error) {
	s := &Server{cfg: cfg, loader: loader, logger: logger, gatherer: prometheus.DefaultGatherer}
	if g, ok := reg.(prometheus.Gatherer); ok {
		s.gatherer = g
	}

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(cfg.Telemetry, logger, telemetry.WithServiceVersion(Version))
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		tp, _ = telemetry.Init(config.TelemetryConfig{}, logger)
	}
	s.telemetry = tp

	instr, err := observability.NewInstrumentation(tp.TracerProvider(), tp.MeterProvider(), logger)
	if err != nil {
		return nil, fmt.Errorf("init instrumentation: %w", err)
	}
	middlewares := []llm.ProviderMiddleware{instr.Middleware()}

	if cfg.Metrics.Enabled {
		s.collector = metrics.NewCollector(cfg.Metrics.Namespace, reg, logger)
		middlewares = append(middlewares, s.collector.Middleware())
		s.providerOps = append(s.providerOps, providers.WithObserver(s.collector))
	}

	if cfg.Cache.Enabled {
		mgr, err := cache.NewManager(cfg.Cache.Redis, logger)
		if err != nil {
			logger.Warn("redis not available, result cache is local only", zap.Error(err))
		} else {
			s.cacheMgr = mgr
		}
		resultCfg := cfg.Cache.Result
		mlc := llmcache.NewMultiLevelCache(redisClient(s.cacheMgr), &resultCfg, logger)
		var recorder llmcache.HitRecorder
		if s.collector != nil {
			recorder = s.collector
		}
		middlewares = append(middlewares, llmcache.Middleware(mlc, logger, recorder))
	}

	registry, err := buildRegistry(cfg, logger, middlewares, s.providerOps...)
	if err != nil {
		return nil, err
	}
	s.registry = registry

	s.handler = s.routes()
	s.httpManager = server.NewManager(s.handler, server.Config{
		Addr:            ":" + strconv.Itoa(cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		MaxHeaderBytes:  server.DefaultConfig().MaxHeaderBytes,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)
	return s, nil
}

func redisClient(m *cache.Manager) redis.UniversalClient {
	if m == nil {
		return nil
	}
	return m.Client()
}

// routes 构建路由与中间件链
func (s *Server) routes() http.Handler {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	health := handlers.NewHealthHandler(Version, s.logger)
	health.RegisterCheck(handlers.NewBackendsHealthCheck(s.registry))
	if s.cacheMgr != nil {
		health.RegisterCheck(handlers.NewPingHealthCheck("redis", s.cacheMgr.Ping))
	}
	generate := handlers.NewGenerateHandler(s.registry, s.cfg.Server.MaxBodyBytes, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.HandleHealth)
	mux.HandleFunc("GET /healthz", health.HandleHealth)
	mux.HandleFunc("GET /ready", health.HandleReady)
	mux.HandleFunc("GET /readyz", health.HandleReady)
	mux.HandleFunc("POST /v1/generate", generate.HandleGenerate)
	mux.HandleFunc("GET /v1/backends", generate.HandleBackends)
	if s.collector != nil {
		mux.Handle("GET "+s.cfg.Metrics.Path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	var metricsMW Middleware
	if s.collector != nil {
		metricsMW = MetricsMiddleware(s.collector)
	}

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(s.telemetry.TracerProvider()),
		metricsMW,
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)
}

// Start 启动配置监听与 HTTP 服务（非阻塞）
func (s *Server) Start(ctx context.Context) error {
	if s.loader != nil && s.loader.ConfigPath() != "" {
		w, err := config.NewWatcher(s.loader, config.WithWatcherLogger(s.logger))
		if err != nil {
			return fmt.Errorf("create config watcher: %w", err)
		}
		w.OnReload(s.applyProviders)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start config watcher: %w", err)
		}
		s.watcher = w
	}
	return s.httpManager.Start()
}

// applyProviders 按新配置重新注册全部后端；已缓存实例在下次调用时重建
func (s *Server) applyProviders(cfg *config.Config) {
	cfgs, err := cfg.ProviderConfigs()
	if err != nil {
		s.logger.Error("reload skipped: invalid provider config", zap.Error(err))
		return
	}
	for _, name := range llm.InferenceNames() {
		s.registry.Register(name, factory.Constructor(name, cfgs[name], s.providerOps...))
	}
	s.logger.Info("provider config reloaded", zap.Int("configured", len(cfgs)))
}

// Shutdown 依次关闭 HTTP 服务、配置监听、Redis 与遥测
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("http shutdown", zap.Error(err))
		}
	}
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.cacheMgr != nil {
		if err := s.cacheMgr.Close(); err != nil {
			s.logger.Warn("redis close", zap.Error(err))
		}
	}
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}
}
