package groq

import (
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/middleware"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/providers/openaicompat"
	"github.com/BaSui01/jsoninference/llm/strategy"
	"go.uber.org/zap"
)

// GroqProvider 实现 Groq 后端（OpenAI 兼容，LPU 推理）.
type GroqProvider struct {
	*strategy.ToolForcing
}

// NewGroqProvider 创建新的 Groq 提供者实例.
func NewGroqProvider(cfg providers.BaseProviderConfig, logger *zap.Logger, opts ...providers.Option) *GroqProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai"
	}
	o := providers.ApplyOptions(opts...)

	transport := openaicompat.New(openaicompat.Config{
		ProviderName:  llm.InferenceGroq.String(),
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: "llama-3.3-70b-versatile",
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
		Burst:         cfg.Burst,
		Client:        o.HTTPClient,
	}, logger)

	return &GroqProvider{
		ToolForcing: strategy.NewToolForcing(strategy.ToolForcingConfig{
			Name:      llm.InferenceGroq.String(),
			Transport: cfg.WrapTransport(transport, logger),
			Capabilities: middleware.Capabilities{
				FoldSystem: true,
				MergeUser:  true,
			},
			MaxAttempts: cfg.AttemptsOr(strategy.DefaultMaxAttempts),
			MaxTokens:   cfg.MaxTokens,
			Observer:    o.Observer,
		}, logger),
	}
}
