package grok

import (
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/providers/openaicompat"
	"github.com/BaSui01/jsoninference/llm/strategy"
	"go.uber.org/zap"
)

// DefaultMaxTokens 是 Grok 请求的 max_tokens 默认值.
const DefaultMaxTokens = 5000

// GrokProvider 实现 xAI Grok 后端.
// Grok 使用 OpenAI 兼容的 API 格式，并在服务端执行 response_format 约束.
type GrokProvider struct {
	*strategy.NativeFormat
}

// NewGrokProvider 创建新的 Grok 提供者实例.
func NewGrokProvider(cfg providers.BaseProviderConfig, logger *zap.Logger, opts ...providers.Option) *GrokProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.x.ai"
	}
	o := providers.ApplyOptions(opts...)

	transport := openaicompat.New(openaicompat.Config{
		ProviderName:  llm.InferenceGrok.String(),
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: "grok-4",
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
		Burst:         cfg.Burst,
		Client:        o.HTTPClient,
	}, logger)

	return &GrokProvider{
		NativeFormat: strategy.NewNativeFormat(strategy.NativeConfig{
			Name:      llm.InferenceGrok.String(),
			Transport: cfg.WrapTransport(transport, logger),
			MaxTokens: cfg.TokensOr(DefaultMaxTokens),
			Observer:  o.Observer,
		}, logger),
	}
}
