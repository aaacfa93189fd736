// Package factory provides a centralized factory for creating backend Provider
// instances by identifier. It imports all provider sub-packages and maps
// identifiers to their constructors, breaking the import cycle that would
// occur if this logic lived in the llm package directly.
package factory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/providers"
	claude "github.com/BaSui01/jsoninference/llm/providers/anthropic"
	"github.com/BaSui01/jsoninference/llm/providers/cohere"
	"github.com/BaSui01/jsoninference/llm/providers/deepseek"
	"github.com/BaSui01/jsoninference/llm/providers/glm"
	"github.com/BaSui01/jsoninference/llm/providers/grok"
	"github.com/BaSui01/jsoninference/llm/providers/groq"
	"github.com/BaSui01/jsoninference/llm/providers/huggingface"
	"github.com/BaSui01/jsoninference/llm/providers/mistral"
	"github.com/BaSui01/jsoninference/llm/providers/ollama"
	"github.com/BaSui01/jsoninference/llm/providers/openai"
	"github.com/BaSui01/jsoninference/llm/providers/perplexity"
	"github.com/BaSui01/jsoninference/llm/providers/qwen"
	"go.uber.org/zap"
)

// aliases 把常用的短名称映射到后端标识。
var aliases = map[string]llm.InferenceName{
	"ollama":      llm.InferenceOllama,
	"grok":        llm.InferenceGrok,
	"xai":         llm.InferenceGrok,
	"hf":          llm.InferenceHF,
	"huggingface": llm.InferenceHF,
	"claude":      llm.InferenceClaude,
	"anthropic":   llm.InferenceClaude,
	"gpt5":        llm.InferenceGPT5,
	"openai":      llm.InferenceGPT5,
	"glm":         llm.InferenceGLM4,
	"glm4":        llm.InferenceGLM4,
	"deepseek":    llm.InferenceDeepSeek,
	"mistral":     llm.InferenceMistral,
	"perplexity":  llm.InferencePerplexity,
	"cohere":      llm.InferenceCohere,
	"alibaba":     llm.InferenceAlibaba,
	"qwen":        llm.InferenceAlibaba,
	"groq":        llm.InferenceGroq,
}

// ParseName 接受完整标识（如 claude_inference）或短名称（如 claude、qwen）。
func ParseName(s string) (llm.InferenceName, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if name := llm.InferenceName(key); name.Known() {
		return name, nil
	}
	if name, ok := aliases[key]; ok {
		return name, nil
	}
	return "", llm.NewError(llm.ErrUnknownBackend, fmt.Sprintf("unknown inference backend %q", s))
}

// NewProviderFromConfig creates a Provider instance for the given backend
// identifier. Credentials are not part of the configuration; they travel with
// each call in llm.Execution.
func NewProviderFromConfig(name llm.InferenceName, cfg providers.BaseProviderConfig, logger *zap.Logger, opts ...providers.Option) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch name {
	case llm.InferenceOllama:
		return ollama.NewOllamaProvider(cfg, logger, opts...)
	case llm.InferenceGrok:
		return grok.NewGrokProvider(cfg, logger, opts...), nil
	case llm.InferenceHF:
		return huggingface.NewHuggingFaceProvider(cfg, logger, opts...), nil
	case llm.InferenceClaude:
		return claude.NewClaudeProvider(cfg, logger, opts...), nil
	case llm.InferenceGPT5:
		return openai.NewOpenAIProvider(cfg, logger, opts...), nil
	case llm.InferenceGLM4:
		return glm.NewGLMProvider(cfg, logger, opts...), nil
	case llm.InferenceDeepSeek:
		return deepseek.NewDeepSeekProvider(cfg, logger, opts...), nil
	case llm.InferenceMistral:
		return mistral.NewMistralProvider(cfg, logger, opts...), nil
	case llm.InferencePerplexity:
		return perplexity.NewPerplexityProvider(cfg, logger, opts...), nil
	case llm.InferenceCohere:
		return cohere.NewCohereProvider(cfg, logger, opts...), nil
	case llm.InferenceAlibaba:
		return qwen.NewQwenProvider(cfg, logger, opts...), nil
	case llm.InferenceGroq:
		return groq.NewGroqProvider(cfg, logger, opts...), nil
	default:
		return nil, llm.NewError(llm.ErrUnknownBackend, fmt.Sprintf("unknown inference backend %q", name))
	}
}

// Constructor 返回延迟构造的 llm.Constructor，供 Registry 按需调用。
func Constructor(name llm.InferenceName, cfg providers.BaseProviderConfig, opts ...providers.Option) llm.Constructor {
	return func(logger *zap.Logger) (llm.Provider, error) {
		return NewProviderFromConfig(name, cfg, logger, opts...)
	}
}

// RegisterBuiltins 为全部内置标识注册构造函数。
// cfgs 中缺省的后端使用零值配置（各后端默认地址与模型）。
func RegisterBuiltins(reg *llm.Registry, cfgs map[llm.InferenceName]providers.BaseProviderConfig, opts ...providers.Option) {
	for _, name := range llm.InferenceNames() {
		reg.Register(name, Constructor(name, cfgs[name], opts...))
	}
}

// SupportedProviders returns the built-in backend identifiers, sorted.
func SupportedProviders() []string {
	names := llm.InferenceNames()
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n.String())
	}
	sort.Strings(out)
	return out
}

// Aliases 返回短名称到标识的映射副本。
func Aliases() map[string]llm.InferenceName {
	out := make(map[string]llm.InferenceName, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}
