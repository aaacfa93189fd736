package openai

import (
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/providers/openaisdk"
	"github.com/BaSui01/jsoninference/llm/strategy"
	"go.uber.org/zap"
)

// DefaultModel 是未指定模型时使用的 OpenAI 模型.
const DefaultModel = "gpt-5"

// OpenAIProvider 实现 OpenAI（gpt5）后端.
// 依赖服务端 json_schema 约束，会话原样转发.
type OpenAIProvider struct {
	*strategy.NativeFormat
}

// NewOpenAIProvider 创建新的 OpenAI 提供者实例.
func NewOpenAIProvider(cfg providers.BaseProviderConfig, logger *zap.Logger, opts ...providers.Option) *OpenAIProvider {
	o := providers.ApplyOptions(opts...)

	transport := openaisdk.New(openaisdk.Config{
		ProviderName:  llm.InferenceGPT5.String(),
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: DefaultModel,
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
		Burst:         cfg.Burst,
		Client:        o.HTTPClient,
	}, logger)

	return &OpenAIProvider{
		NativeFormat: strategy.NewNativeFormat(strategy.NativeConfig{
			Name:      llm.InferenceGPT5.String(),
			Transport: cfg.WrapTransport(transport, logger),
			MaxTokens: cfg.MaxTokens,
			Observer:  o.Observer,
		}, logger),
	}
}
