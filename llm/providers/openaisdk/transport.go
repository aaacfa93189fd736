package openaisdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/BaSui01/jsoninference/internal/tlsutil"
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/schema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/openai/openai-go/v3/shared/constant"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config 配置基于 openai-go SDK 的传输层.
type Config struct {
	ProviderName  string
	BaseURL       string // 为空时使用 SDK 默认地址（api.openai.com/v1）
	DefaultModel  string
	FallbackModel string
	Timeout       time.Duration
	RateLimit     float64
	Burst         int
	Client        *http.Client
}

// Transport 通过官方 openai-go SDK 调用 Chat Completions，
// 也用于提供 OpenAI 兼容端点的后端（Cohere compatibility API、Perplexity）.
type Transport struct {
	cfg     Config
	client  openai.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ llm.Transport = (*Transport)(nil)

// New 创建 SDK 传输层。SDK 自带重试被关闭，重试由上层决定.
func New(cfg Config, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
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
		client: openai.NewClient(opts...),
		logger: logger.With(zap.String("component", "openai_sdk"), zap.String("provider", cfg.ProviderName)),
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

func (t *Transport) Name() string { return t.cfg.ProviderName }

// Completion 发送一次非流式 Chat Completions 请求.
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
	completion, err := t.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, t.mapError(err)
	}

	t.logger.Debug("completion finished",
		zap.String("model", string(params.Model)),
		zap.Int("choices", len(completion.Choices)),
		zap.Duration("duration", time.Since(start)))

	return t.toChatResponse(completion), nil
}

func (t *Transport) buildParams(req *llm.ChatRequest) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(providers.ChooseModel(req, t.cfg.DefaultModel, t.cfg.FallbackModel)),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		union, err := toMessageParam(m)
		if err != nil {
			return params, err
		}
		params.Messages = append(params.Messages, union)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(float64(req.Temperature))
	}
	if req.ResponseFormat != nil && req.ResponseFormat.JSONSchema != nil {
		js := req.ResponseFormat.JSONSchema
		jsonSchema := shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   envelopeName(req.ResponseFormat),
			Schema: js.Schema,
		}
		if js.Description != "" {
			jsonSchema.Description = openai.String(js.Description)
		}
		if js.Strict != nil {
			jsonSchema.Strict = openai.Bool(*js.Strict)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{JSONSchema: jsonSchema},
		}
	}
	if len(req.Tools) > 0 {
		params.Tools = make([]openai.ChatCompletionToolUnionParam, 0, len(req.Tools))
		for _, tool := range req.Tools {
			var fp shared.FunctionParameters
			if len(tool.Parameters) > 0 {
				if err := json.Unmarshal(tool.Parameters, &fp); err != nil {
					return params, fmt.Errorf("decode parameters of tool %s: %w", tool.Name, err)
				}
			}
			params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  fp,
			}))
		}
	}
	// SDK 传输只服务 Native-Format 后端，不支持强制 tool_choice
	if req.ToolChoice != "" {
		return params, fmt.Errorf("tool_choice %q is not supported by this transport", req.ToolChoice)
	}
	return params, nil
}

func toMessageParam(m llm.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case llm.RoleSystem:
		return openai.SystemMessage(m.Content), nil
	case llm.RoleUser:
		return openai.UserMessage(m.Content), nil
	case llm.RoleAssistant:
		if len(m.ToolCalls) == 0 {
			return openai.AssistantMessage(m.Content), nil
		}
		calls := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			calls = append(calls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: argumentsString(tc.Arguments),
					},
					Type: "function",
				},
			})
		}
		return openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Content:   openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Content)},
				ToolCalls: calls,
				Role:      constant.Assistant("assistant"),
			},
		}, nil
	case llm.RoleTool:
		return openai.ToolMessage(m.Content, m.ToolCallID), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unsupported role %q", m.Role)
	}
}

// argumentsString SDK 要求 arguments 为字符串.
func argumentsString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (t *Transport) toChatResponse(c *openai.ChatCompletion) *llm.ChatResponse {
	resp := &llm.ChatResponse{
		ID:       c.ID,
		Provider: t.Name(),
		Model:    c.Model,
		Choices:  make([]llm.ChatChoice, 0, len(c.Choices)),
		Usage: llm.ChatUsage{
			PromptTokens:     int(c.Usage.PromptTokens),
			CompletionTokens: int(c.Usage.CompletionTokens),
			TotalTokens:      int(c.Usage.TotalTokens),
		},
	}
	for _, choice := range c.Choices {
		msg := llm.Message{
			Role:    llm.RoleAssistant,
			Content: choice.Message.Content,
			Refusal: choice.Message.Refusal,
		}
		for _, tc := range choice.Message.ToolCalls {
			if tc.Type != "function" {
				continue
			}
			args, _ := json.Marshal(tc.Function.Arguments)
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: args,
			})
		}
		resp.Choices = append(resp.Choices, llm.ChatChoice{
			Index:        int(choice.Index),
			FinishReason: string(choice.FinishReason),
			Message:      msg,
		})
	}
	return resp
}

func (t *Transport) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = err.Error()
		}
		mapped := providers.MapHTTPError(apiErr.StatusCode, msg, t.Name())
		mapped.Cause = err
		return mapped
	}
	return providers.MapTransportError(err, t.Name())
}

// envelopeName 保证 response_format 名称非空.
func envelopeName(rf *schema.ResponseFormat) string {
	if rf == nil || rf.JSONSchema == nil || rf.JSONSchema.Name == "" {
		return schema.AnswerToolName
	}
	return rf.JSONSchema.Name
}
