// =============================================================================
// 📦 jsoninfer 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("jsoninfer.yaml").
//	    WithEnvPrefix("JSONINFER").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/jsoninference/internal/cache"
	"github.com/BaSui01/jsoninference/llm"
	llmcache "github.com/BaSui01/jsoninference/llm/cache"
	"github.com/BaSui01/jsoninference/llm/factory"
	"github.com/BaSui01/jsoninference/llm/providers"
	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix 是环境变量的默认前缀.
const DefaultEnvPrefix = "JSONINFER"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 jsoninfer 的完整配置结构
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Cache 结果缓存配置
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Providers 按后端标识（或别名）配置，凭据不在此处
	Providers map[string]providers.BaseProviderConfig `yaml:"providers" env:"PROVIDERS"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时（需覆盖最慢后端的多次尝试）
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 空闲超时
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 请求体上限
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	// 每 IP 限流（0 表示不限流）
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// 允许的跨域来源，为空时拒绝跨域
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP gRPC 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 不使用 TLS 连接端点
	Insecure bool `yaml:"insecure" env:"INSECURE"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	Path      string `yaml:"path" env:"PATH"`
}

// CacheConfig 结果缓存配置
type CacheConfig struct {
	// 是否启用结果缓存
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Redis 连接
	Redis cache.Config `yaml:"redis" env:"REDIS"`
	// 本地/Redis 两级缓存参数
	Result llmcache.Config `yaml:"result" env:"RESULT"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  DefaultEnvPrefix,
		lookupEnv:  os.LookupEnv,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// ConfigPath 返回配置文件路径
func (l *Loader) ConfigPath() string { return l.configPath }

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置；文件不存在时保留默认值
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	_, err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
	return err
}

// setFieldsFromEnv 递归设置结构体字段，返回是否有字段被覆盖
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) (bool, error) {
	t := v.Type()
	touched := false

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		switch {
		case field.Kind() == reflect.Struct:
			set, err := l.setFieldsFromEnv(field, envKey)
			if err != nil {
				return false, err
			}
			touched = touched || set
			continue
		case field.Kind() == reflect.Map && field.Type().Elem().Kind() == reflect.Struct:
			set, err := l.setMapFromEnv(field, envKey)
			if err != nil {
				return false, err
			}
			touched = touched || set
			continue
		}

		envValue, ok := l.lookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return false, fmt.Errorf("failed to set %s: %w", envKey, err)
		}
		touched = true
	}

	return touched, nil
}

// setMapFromEnv 覆盖 map[string]struct 条目.
// 候选键为已有条目与全部后端标识，例如 JSONINFER_PROVIDERS_OLLAMA_INFERENCE_BASE_URL.
func (l *Loader) setMapFromEnv(field reflect.Value, prefix string) (bool, error) {
	keys := map[string]bool{}
	for _, k := range field.MapKeys() {
		keys[k.String()] = true
	}
	for _, name := range llm.InferenceNames() {
		keys[name.String()] = true
	}

	if field.IsNil() {
		field.Set(reflect.MakeMap(field.Type()))
	}

	touched := false
	for key := range keys {
		elem := reflect.New(field.Type().Elem()).Elem()
		if existing := field.MapIndex(reflect.ValueOf(key)); existing.IsValid() {
			elem.Set(existing)
		}
		set, err := l.setFieldsFromEnv(elem, prefix+"_"+strings.ToUpper(key))
		if err != nil {
			return false, err
		}
		if set {
			field.SetMapIndex(reflect.ValueOf(key), elem)
			touched = true
		}
	}
	return touched, nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// ProviderConfigs 把 providers 段按后端标识归一（别名会被解析）.
func (c *Config) ProviderConfigs() (map[llm.InferenceName]providers.BaseProviderConfig, error) {
	out := make(map[llm.InferenceName]providers.BaseProviderConfig, len(c.Providers))
	for key, pc := range c.Providers {
		name, err := factory.ParseName(key)
		if err != nil {
			return nil, fmt.Errorf("providers.%s: %w", key, err)
		}
		out[name] = pc
	}
	return out, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, "max_body_bytes must be positive")
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		errs = append(errs, "rate limit must not be negative")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst == 0 {
		errs = append(errs, "rate_limit_burst must be positive when rate_limit_rps is set")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format %q", c.Log.Format))
	}

	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, "telemetry.otlp_endpoint is required when telemetry is enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	if c.Cache.Enabled {
		switch c.Cache.Result.KeyStrategyType {
		case "hash", "hierarchical":
		default:
			errs = append(errs, fmt.Sprintf("invalid cache key strategy %q", c.Cache.Result.KeyStrategyType))
		}
		if c.Cache.Result.EnableRedis && c.Cache.Redis.Addr == "" {
			errs = append(errs, "cache.redis.addr is required when redis cache is enabled")
		}
	}

	seen := make(map[llm.InferenceName]string, len(c.Providers))
	for key, pc := range c.Providers {
		name, err := factory.ParseName(key)
		if err != nil {
			errs = append(errs, fmt.Sprintf("unknown provider %q", key))
			continue
		}
		if prev, dup := seen[name]; dup {
			errs = append(errs, fmt.Sprintf("providers %q and %q both configure %s", prev, key, name))
		}
		seen[name] = key
		if pc.MaxAttempts < 0 || pc.MaxTokens < 0 || pc.MaxRetries < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s: counts must not be negative", key))
		}
		if pc.Timeout < 0 || pc.RateLimit < 0 || pc.Burst < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s: timeout and rate limit must not be negative", key))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
