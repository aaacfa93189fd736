package huggingface

import (
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/providers/openaicompat"
	"github.com/BaSui01/jsoninference/llm/strategy"
	"go.uber.org/zap"
)

// DefaultBaseURL 是 Hugging Face Inference Providers 路由地址.
const DefaultBaseURL = "https://router.huggingface.co"

// HuggingFaceProvider 实现 Hugging Face 路由后端.
// 会话原样转发，结果附带 _thinking（reasoning_content）与 _context 旁路字段.
type HuggingFaceProvider struct {
	*strategy.ToolForcing
}

// NewHuggingFaceProvider 创建新的 Hugging Face 提供者实例.
func NewHuggingFaceProvider(cfg providers.BaseProviderConfig, logger *zap.Logger, opts ...providers.Option) *HuggingFaceProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	o := providers.ApplyOptions(opts...)

	transport := openaicompat.New(openaicompat.Config{
		ProviderName: llm.InferenceHF.String(),
		BaseURL:      cfg.BaseURL,
		DefaultModel: cfg.Model,
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		Burst:        cfg.Burst,
		Client:       o.HTTPClient,
	}, logger)

	return &HuggingFaceProvider{
		ToolForcing: strategy.NewToolForcing(strategy.ToolForcingConfig{
			Name:              llm.InferenceHF.String(),
			Transport:         cfg.WrapTransport(transport, logger),
			MaxAttempts:       cfg.AttemptsOr(strategy.DefaultMaxAttempts),
			MaxTokens:         cfg.MaxTokens,
			AnnotateReasoning: true,
			AnnotateContext:   true,
			Observer:          o.Observer,
		}, logger),
	}
}
