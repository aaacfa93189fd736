package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/jsoninference/internal/tlsutil"
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultMaxTokens int64 = 4096

// TransportConfig 配置 Anthropic Messages API 传输层.
type TransportConfig struct {
	BaseURL       string
	DefaultModel  string
	FallbackModel string
	Timeout       time.Duration
	RateLimit     float64
	Burst         int
	Client        *http.Client
}

// Transport 通过 anthropic-sdk-go 调用 /v1/messages.
type Transport struct {
	cfg     TransportConfig
	client  anthropic.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ llm.Transport = (*Transport)(nil)

// NewTransport 创建 Anthropic 传输层.
func NewTransport(cfg TransportConfig, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = tlsutil.SecureHTTPClient(cfg.Timeout)
	}
	opts := []option.RequestOption{
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	t := &Transport{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
		logger: logger.With(zap.String("component", "anthropic"), zap.String("provider", llm.InferenceClaude.String())),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return t
}

func (t *Transport) Name() string { return llm.InferenceClaude.String() }

// Completion 发送一次 Messages 请求.
func (t *Transport) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params, err := t.buildParams(req)
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, err.Error()).WithProvider(t.Name()).WithCause(err)
	}

	var reqOpts []option.RequestOption
	if key, ok := llm.CredentialFromContext(ctx); ok {
		reqOpts = append(reqOpts, option.WithAPIKey(key))
	}

	start := time.Now()
	msg, err := t.client.Messages.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, t.mapError(err)
	}

	t.logger.Debug("completion finished",
		zap.String("model", string(params.Model)),
		zap.String("stop_reason", string(msg.StopReason)),
		zap.Duration("duration", time.Since(start)))

	return t.toChatResponse(msg), nil
}

func (t *Transport) buildParams(req *llm.ChatRequest) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(providers.ChooseModel(req, t.cfg.DefaultModel, t.cfg.FallbackModel)),
		MaxTokens: defaultMaxTokens,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}

	// system 消息走独立字段
	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			if m.Content != "" {
				system = append(system, m.Content)
			}
		case llm.RoleUser:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case llm.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, toolInput(tc.Arguments), tc.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
		case llm.RoleTool:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		default:
			return params, fmt.Errorf("unsupported role %q", m.Role)
		}
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n")}}
	}

	for _, tool := range req.Tools {
		input, err := inputSchema(tool.Parameters)
		if err != nil {
			return params, fmt.Errorf("decode parameters of tool %s: %w", tool.Name, err)
		}
		union := anthropic.ToolUnionParamOfTool(input, tool.Name)
		if tool.Description != "" {
			union.OfTool.Description = anthropic.String(tool.Description)
		}
		params.Tools = append(params.Tools, union)
	}

	switch req.ToolChoice {
	case "":
	case "auto":
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	case "required":
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
	case "none":
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	default:
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfTool: &anthropic.ToolChoiceToolParam{Name: req.ToolChoice}}
	}
	return params, nil
}

// inputSchema 把工具参数 schema 转换为 input_schema；
// properties/required 之外的关键字经 ExtraFields 原样发送.
func inputSchema(raw json.RawMessage) (anthropic.ToolInputSchemaParam, error) {
	out := anthropic.ToolInputSchemaParam{Properties: map[string]any{}}
	if len(raw) == 0 {
		return out, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out, err
	}
	if props, ok := doc["properties"]; ok && props != nil {
		out.Properties = props
	}
	if required, ok := doc["required"].([]any); ok {
		for _, name := range required {
			if s, ok := name.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	delete(doc, "type")
	delete(doc, "properties")
	delete(doc, "required")
	if len(doc) > 0 {
		out.ExtraFields = doc
	}
	return out, nil
}

// toolInput 把 ToolCall 参数转换为 tool_use 的 input 对象.
func toolInput(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if json.Valid([]byte(s)) {
			return json.RawMessage(s)
		}
		return json.RawMessage(`{}`)
	}
	return raw
}

func (t *Transport) toChatResponse(msg *anthropic.Message) *llm.ChatResponse {
	out := llm.Message{Role: llm.RoleAssistant}
	var text, thinking []string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				text = append(text, block.Text)
			}
		case "thinking":
			if block.Thinking != "" {
				thinking = append(thinking, block.Thinking)
			}
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	out.Content = strings.Join(text, "\n")
	out.ReasoningContent = strings.Join(thinking, "\n")
	if string(msg.StopReason) == "refusal" {
		out.Refusal = out.Content
		if out.Refusal == "" {
			out.Refusal = "refused"
		}
	}

	return &llm.ChatResponse{
		ID:       msg.ID,
		Provider: t.Name(),
		Model:    string(msg.Model),
		Choices: []llm.ChatChoice{{
			FinishReason: string(msg.StopReason),
			Message:      out,
		}},
		Usage: llm.ChatUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

func (t *Transport) mapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		mapped := providers.MapHTTPError(apiErr.StatusCode, err.Error(), t.Name())
		mapped.Cause = err
		return mapped
	}
	return providers.MapTransportError(err, t.Name())
}
