package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BaSui01/jsoninference/internal/tlsutil"
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

const (
	// CloudHost 在携带凭据且未配置 BaseURL 时使用.
	CloudHost = "https://ollama.com"
	// LocalHost 是本地 Ollama 守护进程地址.
	LocalHost = "http://127.0.0.1:11434"
)

// TransportConfig 配置 Ollama Chat API 传输层.
type TransportConfig struct {
	BaseURL       string
	DefaultModel  string
	FallbackModel string
	Timeout       time.Duration
	Client        *http.Client
}

// Transport 以 ollama/api 的请求/响应类型调用 /api/chat.
// 未配置 BaseURL 时按请求选择主机：有凭据走云端并附加 Bearer，否则走本地.
type Transport struct {
	cfg    TransportConfig
	client *http.Client
	logger *zap.Logger
}

var _ llm.Transport = (*Transport)(nil)

// NewTransport 创建 Ollama 传输层.
func NewTransport(cfg TransportConfig, logger *zap.Logger) (*Transport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.BaseURL != "" {
		if _, err := url.Parse(cfg.BaseURL); err != nil {
			return nil, fmt.Errorf("parse ollama base url: %w", err)
		}
		cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	client := cfg.Client
	if client == nil {
		// 本地 Ollama 串行处理请求，限制连接数避免排队超时
		client = tlsutil.SecureHTTPClient(cfg.Timeout, tlsutil.WithMaxConnsPerHost(4))
	}
	return &Transport{
		cfg:    cfg,
		client: client,
		logger: logger.With(zap.String("component", "ollama"), zap.String("provider", llm.InferenceOllama.String())),
	}, nil
}

func (t *Transport) Name() string { return llm.InferenceOllama.String() }

// hostFor 返回本次请求的主机地址.
func (t *Transport) hostFor(ctx context.Context) string {
	if t.cfg.BaseURL != "" {
		return t.cfg.BaseURL
	}
	if _, ok := llm.CredentialFromContext(ctx); ok {
		return CloudHost
	}
	return LocalHost
}

// Completion 发送一次非流式 chat 请求.
func (t *Transport) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	chatReq, err := t.buildRequest(req)
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, err.Error()).WithProvider(t.Name()).WithCause(err)
	}
	payload, err := json.Marshal(chatReq)
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, err.Error()).WithProvider(t.Name()).WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.hostFor(ctx)+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, err.Error()).WithProvider(t.Name()).WithCause(err)
	}
	key, _ := llm.CredentialFromContext(ctx)
	providers.BearerTokenHeaders(httpReq, key)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, providers.MapTransportError(err, t.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		return nil, t.statusError(resp)
	}

	var final api.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&final); err != nil {
		return nil, llm.NewError(llm.ErrUpstreamError, "decode chat response").WithProvider(t.Name()).WithCause(err)
	}

	t.logger.Debug("completion finished",
		zap.String("model", chatReq.Model),
		zap.String("done_reason", final.DoneReason),
		zap.Duration("duration", time.Since(start)))

	return t.toChatResponse(&final)
}

// statusError 解析 {"error": "..."} 错误体并映射错误码.
func (t *Transport) statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		msg = body.Error
	}
	cause := api.StatusError{StatusCode: resp.StatusCode, Status: resp.Status, ErrorMessage: msg}
	mapped := providers.MapHTTPError(resp.StatusCode, msg, t.Name())
	mapped.Cause = cause
	return mapped
}

func (t *Transport) buildRequest(req *llm.ChatRequest) (*chatRequest, error) {
	stream := false
	out := &chatRequest{ChatRequest: api.ChatRequest{
		Model:    providers.ChooseModel(req, t.cfg.DefaultModel, t.cfg.FallbackModel),
		Messages: make([]api.Message, 0, len(req.Messages)),
		Stream:   &stream,
	}}
	if req.Think {
		out.Think = &api.ThinkValue{Value: true}
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		out.Options = map[string]any{}
		if req.MaxTokens > 0 {
			out.Options["num_predict"] = req.MaxTokens
		}
		if req.Temperature > 0 {
			out.Options["temperature"] = req.Temperature
		}
	}

	for _, m := range req.Messages {
		msg := api.Message{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for i, tc := range m.ToolCalls {
			var args api.ToolCallFunctionArguments
			if text := argumentsObject(tc.Arguments); text != "" {
				if err := json.Unmarshal([]byte(text), &args); err != nil {
					return nil, fmt.Errorf("decode arguments of tool call %s: %w", tc.Name, err)
				}
			}
			msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
				ID: tc.ID,
				Function: api.ToolCallFunction{
					Index:     i,
					Name:      tc.Name,
					Arguments: args,
				},
			})
		}
		out.Messages = append(out.Messages, msg)
	}

	for _, tool := range req.Tools {
		params := tool.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		if !json.Valid(params) {
			return nil, fmt.Errorf("decode parameters of tool %s: invalid JSON", tool.Name)
		}
		out.tools = append(out.tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return out, nil
}

// chatRequest 在 api.ChatRequest 之外携带原样透传的工具参数 schema；
// api.ToolFunctionParameters 只认识部分关键字.
type chatRequest struct {
	api.ChatRequest
	tools []wireTool
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

func (r *chatRequest) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(r.ChatRequest)
	if err != nil {
		return nil, err
	}
	if len(r.tools) == 0 {
		return base, nil
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(base, &body); err != nil {
		return nil, err
	}
	if body["tools"], err = json.Marshal(r.tools); err != nil {
		return nil, err
	}
	return json.Marshal(body)
}

// argumentsObject 返回可解码为对象的参数文本；字符串形式的参数取其内容.
func argumentsObject(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil || !json.Valid([]byte(s)) {
			return ""
		}
		return s
	}
	return trimmed
}

func (t *Transport) toChatResponse(resp *api.ChatResponse) (*llm.ChatResponse, error) {
	msg := llm.Message{
		Role:             llm.RoleAssistant,
		Content:          resp.Message.Content,
		ReasoningContent: resp.Message.Thinking,
	}
	for _, tc := range resp.Message.ToolCalls {
		args, err := json.Marshal(tc.Function.Arguments.ToMap())
		if err != nil {
			return nil, llm.NewError(llm.ErrUpstreamError, "encode tool call arguments").WithProvider(t.Name()).WithCause(err)
		}
		msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return &llm.ChatResponse{
		Provider: t.Name(),
		Model:    resp.Model,
		Choices: []llm.ChatChoice{{
			FinishReason: resp.DoneReason,
			Message:      msg,
		}},
		Usage: llm.ChatUsage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}
