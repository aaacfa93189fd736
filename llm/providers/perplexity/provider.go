package perplexity

import (
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/middleware"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/providers/openaisdk"
	"github.com/BaSui01/jsoninference/llm/strategy"
	"go.uber.org/zap"
)

// DefaultBaseURL 是 Perplexity API 地址.
const DefaultBaseURL = "https://api.perplexity.ai"

// PerplexityProvider 实现 Perplexity 后端.
type PerplexityProvider struct {
	*strategy.NativeFormat
}

// NewPerplexityProvider 创建新的 Perplexity 提供者实例.
func NewPerplexityProvider(cfg providers.BaseProviderConfig, logger *zap.Logger, opts ...providers.Option) *PerplexityProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	o := providers.ApplyOptions(opts...)

	transport := openaisdk.New(openaisdk.Config{
		ProviderName:  llm.InferencePerplexity.String(),
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: "sonar",
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
		Burst:         cfg.Burst,
		Client:        o.HTTPClient,
	}, logger)

	return &PerplexityProvider{
		NativeFormat: strategy.NewNativeFormat(strategy.NativeConfig{
			Name:      llm.InferencePerplexity.String(),
			Transport: cfg.WrapTransport(transport, logger),
			// Perplexity 要求 user/assistant 严格交替
			Capabilities: middleware.Capabilities{
				FoldSystem:     true,
				AllowedRoles:   []llm.Role{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant},
				MergeUser:      true,
				MergeAssistant: true,
			},
			MaxTokens: cfg.MaxTokens,
			Observer:  o.Observer,
		}, logger),
	}
}
