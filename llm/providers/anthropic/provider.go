package claude

import (
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/middleware"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/strategy"
	"go.uber.org/zap"
)

// DefaultModel 是未指定模型时使用的 Claude 模型.
const DefaultModel = "claude-sonnet-4-5"

// ClaudeProvider 实现 Anthropic Claude 后端.
// Messages API 没有 response_format，结构化输出通过强制 tool_use 获取.
type ClaudeProvider struct {
	*strategy.ToolForcing
}

// NewClaudeProvider 创建新的 Claude 提供者实例.
func NewClaudeProvider(cfg providers.BaseProviderConfig, logger *zap.Logger, opts ...providers.Option) *ClaudeProvider {
	o := providers.ApplyOptions(opts...)

	transport := NewTransport(TransportConfig{
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: DefaultModel,
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
		Burst:         cfg.Burst,
		Client:        o.HTTPClient,
	}, logger)

	return &ClaudeProvider{
		ToolForcing: strategy.NewToolForcing(strategy.ToolForcingConfig{
			Name:      llm.InferenceClaude.String(),
			Transport: cfg.WrapTransport(transport, logger),
			// Messages API 要求 user/assistant 交替
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
