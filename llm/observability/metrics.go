package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/BaSui01/jsoninference/llm"

// Metrics 基于 OpenTelemetry Meter 的获取指标.
type Metrics struct {
	// 计数器
	requestTotal metric.Int64Counter
	errorTotal   metric.Int64Counter
	// 直方图
	requestDuration metric.Float64Histogram
	resultBytes     metric.Int64Histogram
	// 进行中
	activeRequests metric.Int64UpDownCounter
}

// NewMetrics 在给定 Meter 上注册指标.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.requestTotal, err = meter.Int64Counter("jsoninference.request.total",
		metric.WithDescription("Total number of structured-output acquisitions"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	m.errorTotal, err = meter.Int64Counter("jsoninference.error.total",
		metric.WithDescription("Total number of failed acquisitions"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, err
	}

	m.requestDuration, err = meter.Float64Histogram("jsoninference.request.duration",
		metric.WithDescription("Acquisition duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120))
	if err != nil {
		return nil, err
	}

	m.resultBytes, err = meter.Int64Histogram("jsoninference.result.size",
		metric.WithDescription("Size of the returned JSON document"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	m.activeRequests, err = meter.Int64UpDownCounter("jsoninference.request.active",
		metric.WithDescription("Acquisitions currently in flight"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// start 记录一次进行中的请求，返回结束回调.
func (m *Metrics) start(ctx context.Context, attrs ...attribute.KeyValue) func(size int, errCode string) {
	if m == nil {
		return func(int, string) {}
	}
	set := metric.WithAttributes(attrs...)
	m.activeRequests.Add(ctx, 1, set)
	begin := time.Now()

	return func(size int, errCode string) {
		m.activeRequests.Add(ctx, -1, set)
		m.requestTotal.Add(ctx, 1, set)
		m.requestDuration.Record(ctx, time.Since(begin).Seconds(), set)
		if errCode != "" {
			m.errorTotal.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("error.code", errCode))...))
			return
		}
		m.resultBytes.Record(ctx, int64(size), set)
	}
}
