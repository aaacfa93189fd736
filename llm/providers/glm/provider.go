package glm

import (
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/middleware"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/providers/openaicompat"
	"github.com/BaSui01/jsoninference/llm/strategy"
	"go.uber.org/zap"
)

// GLMProvider 实现智谱 AI GLM 后端.
type GLMProvider struct {
	*strategy.ToolForcing
}

// NewGLMProvider 创建新的 GLM 提供者实例.
func NewGLMProvider(cfg providers.BaseProviderConfig, logger *zap.Logger, opts ...providers.Option) *GLMProvider {
	// 如果未提供则设置默认 BaseURL
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://open.bigmodel.cn"
	}
	o := providers.ApplyOptions(opts...)

	transport := openaicompat.New(openaicompat.Config{
		ProviderName:  llm.InferenceGLM4.String(),
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: "glm-4-plus",
		Timeout:       cfg.Timeout,
		EndpointPath:  "/api/paas/v4/chat/completions",
		RateLimit:     cfg.RateLimit,
		Burst:         cfg.Burst,
		Client:        o.HTTPClient,
	}, logger)

	return &GLMProvider{
		ToolForcing: strategy.NewToolForcing(strategy.ToolForcingConfig{
			Name:      llm.InferenceGLM4.String(),
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
