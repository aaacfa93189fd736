package observability

import (
	"context"
	"errors"

	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SpanName 是每次 OutlineCompletion 的 span 名称.
const SpanName = "jsoninference.outline_completion"

// 属性键
const (
	AttrBackend      = attribute.Key("jsoninference.backend")
	AttrModel        = attribute.Key("jsoninference.model")
	AttrSchemaName   = attribute.Key("jsoninference.schema.name")
	AttrMessageCount = attribute.Key("jsoninference.messages")
	AttrErrorCode    = attribute.Key("jsoninference.error.code")
	AttrResultSize   = attribute.Key("jsoninference.result.size")
)

// Instrumentation 组合 tracer 与 meter，生成 Provider 装饰器.
type Instrumentation struct {
	tracer  oteltrace.Tracer
	metrics *Metrics
	logger  *zap.Logger
}

// NewInstrumentation 从 TracerProvider/MeterProvider 创建观测组件.
// mp 为 nil 时只记录 span.
func NewInstrumentation(tp oteltrace.TracerProvider, mp metric.MeterProvider, logger *zap.Logger) (*Instrumentation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	inst := &Instrumentation{
		tracer: tp.Tracer(instrumentationName),
		logger: logger.With(zap.String("component", "observability")),
	}
	if mp != nil {
		m, err := NewMetrics(mp.Meter(instrumentationName))
		if err != nil {
			return nil, err
		}
		inst.metrics = m
	}
	return inst, nil
}

// Middleware 为每次 OutlineCompletion 创建 span 并记录指标.
func (i *Instrumentation) Middleware() llm.ProviderMiddleware {
	return func(next llm.Provider) llm.Provider {
		return &tracedProvider{next: next, inst: i}
	}
}

type tracedProvider struct {
	next llm.Provider
	inst *Instrumentation
}

func (p *tracedProvider) Name() string { return p.next.Name() }

func (p *tracedProvider) OutlineCompletion(ctx context.Context, params llm.OutlineParams, exec llm.Execution) (*llm.Result, error) {
	backend := exec.Backend.String()
	if backend == "" {
		backend = p.next.Name()
	}
	model := exec.Model
	if model == "" {
		model = "default"
	}
	attrs := []attribute.KeyValue{AttrBackend.String(backend), AttrModel.String(model)}

	ctx, span := p.inst.tracer.Start(ctx, SpanName,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(attrs...),
		oteltrace.WithAttributes(
			AttrSchemaName.String(schemaName(params.Format)),
			AttrMessageCount.Int(len(params.Messages)),
		))
	defer span.End()

	done := p.inst.metrics.start(ctx, attrs...)

	res, err := p.next.OutlineCompletion(ctx, params, exec)
	if err != nil {
		code := errorCode(err)
		span.RecordError(err)
		span.SetAttributes(AttrErrorCode.String(code))
		span.SetStatus(codes.Error, err.Error())
		done(0, code)
		p.inst.logger.Debug("outline completion failed",
			zap.String("backend", backend),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err))
		return nil, err
	}

	span.SetAttributes(AttrResultSize.Int(len(res.Content)))
	span.SetStatus(codes.Ok, "")
	done(len(res.Content), "")
	return res, nil
}

func schemaName(src schema.Source) string {
	if src == nil {
		return ""
	}
	env := schema.Envelope(src)
	if env.JSONSchema == nil {
		return ""
	}
	return env.JSONSchema.Name
}

func errorCode(err error) string {
	var llmErr *llm.Error
	switch {
	case errors.As(err, &llmErr):
		return string(llmErr.Code)
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	default:
		return "error"
	}
}
