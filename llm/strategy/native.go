package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/middleware"
	"github.com/BaSui01/jsoninference/llm/schema"
	"github.com/BaSui01/jsoninference/llm/structured"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NativeConfig 配置 Native-Format 策略。
type NativeConfig struct {
	Name         string
	Transport    llm.Transport
	Capabilities middleware.Capabilities
	MaxTokens    int
	Observer     Observer
}

// NativeFormat 依赖服务端 response_format 约束的单次请求策略。
// 拒答立即失败，不重试。
type NativeFormat struct {
	name      string
	transport llm.Transport
	chain     *middleware.RewriterChain
	maxTokens int
	observer  Observer
	logger    *zap.Logger
}

var _ llm.Provider = (*NativeFormat)(nil)

// NewNativeFormat 创建 Native-Format 策略。
func NewNativeFormat(cfg NativeConfig, logger *zap.Logger) *NativeFormat {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Name
	if name == "" && cfg.Transport != nil {
		name = cfg.Transport.Name()
	}
	return &NativeFormat{
		name:      name,
		transport: cfg.Transport,
		chain:     cfg.Capabilities.Chain(),
		maxTokens: cfg.MaxTokens,
		observer:  observerOrNop(cfg.Observer),
		logger:    logger.With(zap.String("component", "native_format"), zap.String("provider", name)),
	}
}

func (s *NativeFormat) Name() string { return s.name }

// OutlineCompletion 发送一次带 response_format 的请求，修复并校验返回内容。
func (s *NativeFormat) OutlineCompletion(ctx context.Context, params llm.OutlineParams, exec llm.Execution) (*llm.Result, error) {
	requestID := uuid.NewString()
	start := time.Now()
	format := schema.Bare(params.Format)
	envelope := schema.Envelope(params.Format)

	req, err := s.chain.Execute(ctx, &llm.ChatRequest{
		Model:          exec.Model,
		Messages:       params.Messages,
		MaxTokens:      s.maxTokens,
		ResponseFormat: &envelope,
	})
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, err.Error()).WithProvider(s.name).WithCause(err)
	}

	resp, err := s.transport.Completion(llm.WithCredential(ctx, exec.Credential(0)), req)
	if err != nil {
		s.observer.ObserveAttempt(s.name, OutcomeTransportError)
		s.logger.Warn("completion failed",
			zap.String("request_id", requestID),
			zap.String("model", exec.Model),
			zap.Error(err))
		return nil, err
	}

	msg, ok := resp.FirstMessage()
	if !ok {
		s.observer.ObserveAttempt(s.name, OutcomeEmptyResponse)
		return nil, llm.NewError(llm.ErrUpstreamError, "response has no choices").WithProvider(s.name)
	}

	if msg.Refusal != "" {
		s.observer.ObserveAttempt(s.name, OutcomeRefused)
		s.logger.Warn("model refused",
			zap.String("request_id", requestID),
			zap.String("model", exec.Model),
			zap.String("refusal", msg.Refusal))
		return nil, llm.NewError(llm.ErrRefusal, fmt.Sprintf("model refused: %s", msg.Refusal)).WithProvider(s.name)
	}

	value, err := structured.RepairAndValidate(msg.Content, format)
	if err != nil {
		s.observer.ObserveAttempt(s.name, OutcomeInvalidArguments)
		s.logger.Warn("structured output rejected",
			zap.String("request_id", requestID),
			zap.String("model", exec.Model),
			zap.Error(err))
		return nil, llm.NewError(llm.ErrNonCompliance, err.Error()).WithProvider(s.name).WithCause(err)
	}

	content, err := structured.Encode(value)
	if err != nil {
		return nil, err
	}

	s.observer.ObserveAttempt(s.name, OutcomeSucceeded)
	s.logger.Debug("structured output acquired",
		zap.String("request_id", requestID),
		zap.String("model", exec.Model),
		zap.Duration("duration", time.Since(start)))

	return &llm.Result{Role: llm.RoleAssistant, Content: content}, nil
}
