package cohere

import (
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/middleware"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/providers/openaisdk"
	"github.com/BaSui01/jsoninference/llm/strategy"
	"go.uber.org/zap"
)

// DefaultBaseURL 是 Cohere 的 OpenAI compatibility API 地址.
const DefaultBaseURL = "https://api.cohere.ai/compatibility/v1"

// CohereProvider 实现 Cohere 后端.
type CohereProvider struct {
	*strategy.NativeFormat
}

// NewCohereProvider 创建新的 Cohere 提供者实例.
func NewCohereProvider(cfg providers.BaseProviderConfig, logger *zap.Logger, opts ...providers.Option) *CohereProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	o := providers.ApplyOptions(opts...)

	transport := openaisdk.New(openaisdk.Config{
		ProviderName:  llm.InferenceCohere.String(),
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: "command-a-03-2025",
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
		Burst:         cfg.Burst,
		Client:        o.HTTPClient,
	}, logger)

	return &CohereProvider{
		NativeFormat: strategy.NewNativeFormat(strategy.NativeConfig{
			Name:      llm.InferenceCohere.String(),
			Transport: cfg.WrapTransport(transport, logger),
			// Cohere 要求严格的 tool_calls -> tool 响应顺序，不合并 assistant
			Capabilities: middleware.Capabilities{
				FoldSystem:   true,
				AllowedRoles: []llm.Role{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant},
				MergeUser:    true,
			},
			MaxTokens: cfg.MaxTokens,
			Observer:  o.Observer,
		}, logger),
	}
}
