package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BaSui01/jsoninference/llm/schema"
)

// 统一的 LLM 错误码，用于对齐 HTTP 状态、可重试性与调用方处理。
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "LLM_INVALID_REQUEST"      // 参数/格式错误
	ErrUnauthorized        ErrorCode = "LLM_UNAUTHORIZED"         // 未授权或密钥失效
	ErrForbidden           ErrorCode = "LLM_FORBIDDEN"            // 权限或内容策略拒绝
	ErrRateLimited         ErrorCode = "LLM_RATE_LIMITED"         // 上游或本地限流
	ErrQuotaExceeded       ErrorCode = "LLM_QUOTA_EXCEEDED"       // 额度/配额用尽
	ErrContentFiltered     ErrorCode = "LLM_CONTENT_FILTERED"     // 命中内容安全
	ErrToolValidation      ErrorCode = "LLM_TOOL_VALIDATION"      // Tool 调用参数校验失败
	ErrModelOverloaded     ErrorCode = "LLM_MODEL_OVERLOADED"     // 模型过载
	ErrUpstreamTimeout     ErrorCode = "LLM_UPSTREAM_TIMEOUT"     // 上游超时
	ErrUpstreamError       ErrorCode = "LLM_UPSTREAM_ERROR"       // 上游 5xx/网络错误
	ErrProviderUnavailable ErrorCode = "LLM_PROVIDER_UNAVAILABLE" // Provider 不可用

	ErrRefusal           ErrorCode = "LLM_REFUSAL"            // 模型明确拒答
	ErrNonCompliance     ErrorCode = "LLM_NON_COMPLIANCE"     // 未遵守结构化输出约定
	ErrAttemptsExhausted ErrorCode = "LLM_ATTEMPTS_EXHAUSTED" // 超过最大尝试次数
	ErrUnknownBackend    ErrorCode = "LLM_UNKNOWN_BACKEND"    // 未注册的后端标识
)

// Error 是跨包传递的统一错误类型。
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError 创建错误。
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithProvider 设置 Provider 名称。
func (e *Error) WithProvider(name string) *Error {
	e.Provider = name
	return e
}

// WithCause 设置底层错误。
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// IsCode 判断错误链中是否存在指定错误码的 *Error。
func IsCode(err error, code ErrorCode) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Code == code
	}
	return false
}

// =============================================================================
// 💬 消息与请求模型
// =============================================================================

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall 是模型返回的工具调用。
// Arguments 保留原始 JSON：可能是 JSON 字符串，也可能是已解析的对象。
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`

	// 仅出现在响应中
	Refusal          string `json:"refusal,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// NewToolSchema 把 schema.Tool 转换为传输层工具定义。
func NewToolSchema(t schema.Tool) (ToolSchema, error) {
	params, err := json.Marshal(t.Parameters)
	if err != nil {
		return ToolSchema{}, fmt.Errorf("marshal tool parameters: %w", err)
	}
	return ToolSchema{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
	}, nil
}

type ChatRequest struct {
	Model          string                 `json:"model"`
	Messages       []Message              `json:"messages"`
	MaxTokens      int                    `json:"max_tokens,omitempty"`
	Temperature    float32                `json:"temperature,omitempty"`
	Tools          []ToolSchema           `json:"tools,omitempty"`
	ToolChoice     string                 `json:"tool_choice,omitempty"` // auto/none/required/<tool name>
	ResponseFormat *schema.ResponseFormat `json:"response_format,omitempty"`
	Think          bool                   `json:"-"` // 请求推理轨迹（仅部分后端支持）
	Metadata       map[string]string      `json:"metadata,omitempty"`
}

type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

type ChatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Message      Message `json:"message"`
}

type ChatResponse struct {
	ID       string       `json:"id,omitempty"`
	Provider string       `json:"provider,omitempty"`
	Model    string       `json:"model"`
	Choices  []ChatChoice `json:"choices"`
	Usage    ChatUsage    `json:"usage,omitempty"`
}

// FirstMessage 返回第一个 choice 的消息；没有 choice 时返回 false。
func (r *ChatResponse) FirstMessage() (Message, bool) {
	if r == nil || len(r.Choices) == 0 {
		return Message{}, false
	}
	return r.Choices[0].Message, true
}

// =============================================================================
// 🔌 接口契约
// =============================================================================

// Transport 是一次请求/响应往返的传输层（HTTP 或 SDK）。
type Transport interface {
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Name() string
}

// OutlineParams 是一次结构化输出请求的参数。
type OutlineParams struct {
	Format   schema.Source `json:"format"`
	Messages []Message     `json:"messages"`
}

// UnmarshalJSON 接受裸 schema 或 response_format 信封。
func (p *OutlineParams) UnmarshalJSON(data []byte) error {
	var raw struct {
		Format   json.RawMessage `json:"format"`
		Messages []Message       `json:"messages"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Messages = raw.Messages
	p.Format = nil
	if len(raw.Format) > 0 && string(raw.Format) != "null" {
		src, err := schema.Decode(raw.Format)
		if err != nil {
			return err
		}
		p.Format = src
	}
	return nil
}

// Result 是结构化输出的结果；Content 为合法 JSON 文本。
type Result struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Provider 是每个后端必须实现的下行契约。
// 实现内部可任选 Native-Format 或 Tool-Forcing 策略。
type Provider interface {
	Name() string
	OutlineCompletion(ctx context.Context, params OutlineParams, exec Execution) (*Result, error)
}

// ProviderMiddleware 在构造时装饰 Provider（指标、追踪、缓存）。
type ProviderMiddleware func(Provider) Provider
