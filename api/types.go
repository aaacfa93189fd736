package api

import (
	"encoding/json"

	"github.com/BaSui01/jsoninference/llm"
)

// =============================================================================
// 结构化输出类型
// =============================================================================

// GenerateRequest 是一次结构化输出请求。
// @Description 结构化输出请求结构
type GenerateRequest struct {
	// 后端标识或别名（例如 ollama_inference、claude、gpt5）
	Backend string `json:"backend" example:"ollama_inference" binding:"required"`
	// 模型名称，空表示后端默认模型
	Model string `json:"model,omitempty" example:"qwen3:8b"`
	// 裸 JSON Schema 或 response_format 信封
	Format json.RawMessage `json:"format" swaggertype:"object" binding:"required"`
	// 对话消息
	Messages []llm.Message `json:"messages" binding:"required"`
	// 请求超时时长
	Timeout string `json:"timeout,omitempty" example:"60s"`
}

// GenerateResponse 是结构化输出结果。
// @Description 结构化输出响应结构
type GenerateResponse struct {
	// 实际使用的后端标识
	Backend string `json:"backend" example:"ollama_inference"`
	// 请求的模型（空表示后端默认）
	Model string `json:"model,omitempty"`
	// 结果角色，固定为 assistant
	Role llm.Role `json:"role" example:"assistant"`
	// 满足 schema 的 JSON 文档
	Content json.RawMessage `json:"content" swaggertype:"object"`
}

// BackendInfo 描述一个已注册后端。
type BackendInfo struct {
	Name string `json:"name" example:"claude_inference"`
}
