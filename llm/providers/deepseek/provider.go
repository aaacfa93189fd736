package deepseek

import (
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/middleware"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/providers/openaicompat"
	"github.com/BaSui01/jsoninference/llm/strategy"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.deepseek.com"
	fallbackModel  = "deepseek-chat"
	maxAttempts    = 5
)

// DeepSeekProvider 实现 DeepSeek 后端.
// DeepSeek 使用 OpenAI 兼容的 API 格式，通过强制工具调用获取结构化输出.
type DeepSeekProvider struct {
	*strategy.ToolForcing
}

// NewDeepSeekProvider 创建新的 DeepSeek 提供者实例.
func NewDeepSeekProvider(cfg providers.BaseProviderConfig, logger *zap.Logger, opts ...providers.Option) *DeepSeekProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	o := providers.ApplyOptions(opts...)

	transport := openaicompat.New(openaicompat.Config{
		ProviderName:  llm.InferenceDeepSeek.String(),
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: fallbackModel,
		Timeout:       cfg.Timeout,
		EndpointPath:  "/chat/completions",
		RateLimit:     cfg.RateLimit,
		Burst:         cfg.Burst,
		Client:        o.HTTPClient,
	}, logger)

	return &DeepSeekProvider{
		ToolForcing: strategy.NewToolForcing(strategy.ToolForcingConfig{
			Name:      llm.InferenceDeepSeek.String(),
			Transport: cfg.WrapTransport(transport, logger),
			Capabilities: middleware.Capabilities{
				FoldSystem: true,
				MergeUser:  true,
			},
			MaxAttempts: cfg.AttemptsOr(maxAttempts),
			MaxTokens:   cfg.MaxTokens,
			Observer:    o.Observer,
		}, logger),
	}
}
