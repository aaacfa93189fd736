package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/middleware"
	"github.com/BaSui01/jsoninference/llm/schema"
	"github.com/BaSui01/jsoninference/llm/structured"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultMaxAttempts 是未配置时的最大尝试次数。
	DefaultMaxAttempts = 5

	// DefaultToolInstruction 是注入到会话首位的 system 指令。
	DefaultToolInstruction = "You must answer by calling the provide_answer tool. " +
		"Put the complete answer in the tool arguments and do not reply with plain text."

	// DefaultCorrectiveMessage 是模型未按要求调用工具时追加的一次性提示。
	DefaultCorrectiveMessage = "Your previous reply did not call the provide_answer tool with valid arguments. " +
		"Call provide_answer now with arguments that satisfy its parameters schema."

	reasoningField = "_thinking"
	contextField   = "_context"
)

// ToolForcingConfig 配置 Tool-Forcing 策略。
type ToolForcingConfig struct {
	Name         string
	Transport    llm.Transport
	Capabilities middleware.Capabilities
	MaxAttempts  int
	MaxTokens    int

	// DisableToolChoice 用于不支持 tool_choice 的后端，此时只依赖 system 指令。
	DisableToolChoice bool
	Think             bool

	// 旁路字段：附加在结果对象上，不属于 schema
	AnnotateReasoning bool
	AnnotateContext   bool

	Instruction       string
	CorrectiveMessage string
	Observer          Observer
}

// ToolForcing 通过强制调用 provide_answer 工具获取结构化输出，带有上限的重试循环。
type ToolForcing struct {
	name        string
	transport   llm.Transport
	chain       *middleware.RewriterChain
	maxAttempts int
	maxTokens   int
	forceChoice bool
	think       bool
	reasoning   bool
	annotateCtx bool
	instruction string
	corrective  string
	observer    Observer
	logger      *zap.Logger
}

var _ llm.Provider = (*ToolForcing)(nil)

// NewToolForcing 创建 Tool-Forcing 策略。
func NewToolForcing(cfg ToolForcingConfig, logger *zap.Logger) *ToolForcing {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Name
	if name == "" && cfg.Transport != nil {
		name = cfg.Transport.Name()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Instruction == "" {
		cfg.Instruction = DefaultToolInstruction
	}
	if cfg.CorrectiveMessage == "" {
		cfg.CorrectiveMessage = DefaultCorrectiveMessage
	}

	// 合并相邻 assistant 消息会破坏 tool call 与响应的配对
	caps := cfg.Capabilities
	caps.MergeAssistant = false

	return &ToolForcing{
		name:        name,
		transport:   cfg.Transport,
		chain:       caps.Chain(),
		maxAttempts: cfg.MaxAttempts,
		maxTokens:   cfg.MaxTokens,
		forceChoice: !cfg.DisableToolChoice,
		think:       cfg.Think,
		reasoning:   cfg.AnnotateReasoning,
		annotateCtx: cfg.AnnotateContext,
		instruction: cfg.Instruction,
		corrective:  cfg.CorrectiveMessage,
		observer:    observerOrNop(cfg.Observer),
		logger:      logger.With(zap.String("component", "tool_forcing"), zap.String("provider", name)),
	}
}

func (s *ToolForcing) Name() string { return s.name }

// MaxAttempts 返回最大尝试次数。
func (s *ToolForcing) MaxAttempts() int { return s.maxAttempts }

// OutlineCompletion 逐次请求并评估，直到得到合法的工具参数或尝试次数用尽。
// 尝试严格串行；传输错误与 ctx 取消立即终止整个调用。
func (s *ToolForcing) OutlineCompletion(ctx context.Context, params llm.OutlineParams, exec llm.Execution) (*llm.Result, error) {
	requestID := uuid.NewString()
	start := time.Now()
	format := schema.Bare(params.Format)

	tool, err := llm.NewToolSchema(schema.AnswerTool(format))
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, err.Error()).WithProvider(s.name).WithCause(err)
	}

	messages := make([]llm.Message, 0, len(params.Messages)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: s.instruction})
	messages = append(messages, params.Messages...)

	base := &llm.ChatRequest{
		Model:     exec.Model,
		Messages:  messages,
		MaxTokens: s.maxTokens,
		Tools:     []llm.ToolSchema{tool},
		Think:     s.think,
	}
	if s.forceChoice {
		base.ToolChoice = schema.AnswerToolName
	}

	// 会话与纠正闩锁都归本次调用所有；每次尝试对完整会话重新归一化
	conversation := messages
	var nudge sync.Once

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		draft := *base
		draft.Messages = conversation
		req, err := s.chain.Execute(ctx, &draft)
		if err != nil {
			return nil, llm.NewError(llm.ErrInvalidRequest, err.Error()).WithProvider(s.name).WithCause(err)
		}

		resp, err := s.transport.Completion(llm.WithCredential(ctx, exec.Credential(attempt-1)), req)
		if err != nil {
			s.observer.ObserveAttempt(s.name, OutcomeTransportError)
			s.logger.Warn("completion failed",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return nil, err
		}

		msg, _ := resp.FirstMessage()
		value, outcome, evalErr := s.evaluate(msg, format)
		s.observer.ObserveAttempt(s.name, outcome)

		if outcome == OutcomeSucceeded {
			value = s.annotate(value, msg, exec)
			content, err := structured.Encode(value)
			if err != nil {
				return nil, err
			}
			s.logger.Debug("structured output acquired",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt),
				zap.Duration("duration", time.Since(start)))
			return &llm.Result{Role: llm.RoleAssistant, Content: content}, nil
		}

		state := "retrying"
		if attempt == s.maxAttempts {
			state = "exhausted"
		}
		s.logger.Warn("attempt failed",
			zap.String("request_id", requestID),
			zap.String("model", exec.Model),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
			zap.String("reason", string(outcome)),
			zap.String("state", state),
			zap.Error(evalErr))

		if outcome != OutcomeRefused {
			nudge.Do(func() {
				conversation = append(conversation, llm.Message{Role: llm.RoleUser, Content: s.corrective})
			})
		}
	}

	return nil, &llm.Error{
		Code:     llm.ErrAttemptsExhausted,
		Message:  fmt.Sprintf("exceeded maximum attempts (%d): model failed to use tool %s", s.maxAttempts, schema.AnswerToolName),
		Provider: s.name,
	}
}

// evaluate 按优先级评估回复：拒答、无工具调用、工具名不符、参数修复与校验。
func (s *ToolForcing) evaluate(msg llm.Message, format schema.Format) (any, Outcome, error) {
	if msg.Refusal != "" {
		return nil, OutcomeRefused, llm.NewError(llm.ErrRefusal, msg.Refusal)
	}
	if len(msg.ToolCalls) == 0 {
		return nil, OutcomeNoToolCall, llm.NewError(llm.ErrNonCompliance, "reply has no tool call")
	}

	call := msg.ToolCalls[0]
	if call.Name != schema.AnswerToolName {
		return nil, OutcomeWrongTool, llm.NewError(llm.ErrNonCompliance, fmt.Sprintf("unexpected tool %q", call.Name))
	}

	value, err := structured.RepairAndValidate(ArgumentsText(call.Arguments), format)
	if err != nil {
		return nil, OutcomeInvalidArguments, llm.NewError(llm.ErrToolValidation, err.Error()).WithCause(err)
	}
	return value, OutcomeSucceeded, nil
}

func (s *ToolForcing) annotate(value any, msg llm.Message, exec llm.Execution) any {
	fields := map[string]any{}
	if s.reasoning && msg.ReasoningContent != "" {
		fields[reasoningField] = msg.ReasoningContent
	}
	if s.annotateCtx {
		fields[contextField] = map[string]any{
			"backend": string(exec.Backend),
			"model":   exec.Model,
		}
	}
	return structured.Annotate(value, fields)
}

// ArgumentsText 把工具参数转换为待修复的文本。
// 字符串形式的参数取其内容，已解析的对象按原样序列化，缺失视为 null。
func ArgumentsText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "null"
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			if s == "" {
				return "null"
			}
			return s
		}
	}
	return string(trimmed)
}
