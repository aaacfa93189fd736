package llm

// InferenceName 是后端标识，与已注册的实现一一对应。
type InferenceName string

const (
	InferenceOllama     InferenceName = "ollama_inference"
	InferenceGrok       InferenceName = "grok_inference"
	InferenceHF         InferenceName = "hf_inference"
	InferenceClaude     InferenceName = "claude_inference"
	InferenceGPT5       InferenceName = "gpt5_inference"
	InferenceGLM4       InferenceName = "glm4_inference"
	InferenceDeepSeek   InferenceName = "deepseek_inference"
	InferenceMistral    InferenceName = "mistral_inference"
	InferencePerplexity InferenceName = "perplexity_inference"
	InferenceCohere     InferenceName = "cohere_inference"
	InferenceAlibaba    InferenceName = "alibaba_inference"
	InferenceGroq       InferenceName = "groq_inference"
)

// InferenceNames 返回全部内置标识。
func InferenceNames() []InferenceName {
	return []InferenceName{
		InferenceOllama,
		InferenceGrok,
		InferenceHF,
		InferenceClaude,
		InferenceGPT5,
		InferenceGLM4,
		InferenceDeepSeek,
		InferenceMistral,
		InferencePerplexity,
		InferenceCohere,
		InferenceAlibaba,
		InferenceGroq,
	}
}

// Known 判断是否为内置标识。
func (n InferenceName) Known() bool {
	for _, name := range InferenceNames() {
		if name == n {
			return true
		}
	}
	return false
}

func (n InferenceName) String() string { return string(n) }
