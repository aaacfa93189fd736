package mistral

import (
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/middleware"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/providers/openaicompat"
	"github.com/BaSui01/jsoninference/llm/strategy"
	"go.uber.org/zap"
)

// MistralProvider 实现 Mistral AI 后端.
// Mistral AI 使用 OpenAI 兼容的 API 格式.
type MistralProvider struct {
	*strategy.ToolForcing
}

// NewMistralProvider 创建新的 Mistral 提供者实例.
func NewMistralProvider(cfg providers.BaseProviderConfig, logger *zap.Logger, opts ...providers.Option) *MistralProvider {
	// 如果未提供则设置默认 BaseURL
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai"
	}
	o := providers.ApplyOptions(opts...)

	transport := openaicompat.New(openaicompat.Config{
		ProviderName:  llm.InferenceMistral.String(),
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: "mistral-large-latest",
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
		Burst:         cfg.Burst,
		Client:        o.HTTPClient,
	}, logger)

	return &MistralProvider{
		ToolForcing: strategy.NewToolForcing(strategy.ToolForcingConfig{
			Name:      llm.InferenceMistral.String(),
			Transport: cfg.WrapTransport(transport, logger),
			// Mistral 拒绝以 assistant 结尾的会话，也不接受相邻同角色的 user 消息
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
