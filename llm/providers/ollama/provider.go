package ollama

import (
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/strategy"
	"go.uber.org/zap"
)

const (
	// DefaultModel 是未指定模型时使用的 Ollama 模型.
	DefaultModel = "gpt-oss:120b"
	// DefaultMaxAttempts 是 Ollama 的默认尝试次数.
	DefaultMaxAttempts = 3
)

// OllamaProvider 实现 Ollama（本地或 ollama.com 云端）后端.
// Ollama 不支持 tool_choice，只依赖 system 指令与纠正提示.
type OllamaProvider struct {
	*strategy.ToolForcing
}

// NewOllamaProvider 创建新的 Ollama 提供者实例.
func NewOllamaProvider(cfg providers.BaseProviderConfig, logger *zap.Logger, opts ...providers.Option) (*OllamaProvider, error) {
	o := providers.ApplyOptions(opts...)

	transport, err := NewTransport(TransportConfig{
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: DefaultModel,
		Timeout:       cfg.Timeout,
		Client:        o.HTTPClient,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &OllamaProvider{
		ToolForcing: strategy.NewToolForcing(strategy.ToolForcingConfig{
			Name:              llm.InferenceOllama.String(),
			Transport:         cfg.WrapTransport(transport, logger),
			MaxAttempts:       cfg.AttemptsOr(DefaultMaxAttempts),
			MaxTokens:         cfg.MaxTokens,
			DisableToolChoice: true,
			Think:             true,
			AnnotateContext:   true,
			Observer:          o.Observer,
		}, logger),
	}, nil
}
