package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/jsoninference/llm"
)

// RetryConfig 传输层重试参数。这里只重试传输失败（5xx、429、网络错误），
// 输出不合格的重试由获取策略负责。
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	// Jitter 在 [1-Jitter, 1] 区间内随机缩放等待时间，0 表示不抖动
	Jitter float64 `json:"jitter"`
	// RetryableOnly 只重试 llm.Error.Retryable 为 true 的错误
	RetryableOnly bool `json:"retryable_only"`
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        0.2,
		RetryableOnly: true,
	}
}

// RetryableTransport 为 llm.Transport 增加指数退避重试
type RetryableTransport struct {
	inner  llm.Transport
	cfg    RetryConfig
	logger *zap.Logger
}

var _ llm.Transport = (*RetryableTransport)(nil)

func NewRetryableTransport(inner llm.Transport, cfg RetryConfig, logger *zap.Logger) *RetryableTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryableTransport{
		inner:  inner,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "retry_transport"), zap.String("provider", inner.Name())),
	}
}

func (p *RetryableTransport) Name() string { return p.inner.Name() }

func (p *RetryableTransport) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, p.backoff(attempt)); err != nil {
				return nil, err
			}
		}

		resp, err := p.inner.Completion(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !p.shouldRetry(err) {
			return nil, err
		}
		lastErr = err
		p.logger.Warn("transport call failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", p.cfg.MaxRetries),
			zap.Error(err))
	}
	return nil, fmt.Errorf("completion failed after %d retries: %w", p.cfg.MaxRetries, lastErr)
}

func (p *RetryableTransport) shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if !p.cfg.RetryableOnly {
		return true
	}
	var llmErr *llm.Error
	return errors.As(err, &llmErr) && llmErr.Retryable
}

// calculateDelay 第 attempt 次重试前的基准等待（不含抖动）
func (p *RetryableTransport) calculateDelay(attempt int) time.Duration {
	factor := p.cfg.BackoffFactor
	if factor <= 0 {
		factor = 2.0
	}
	d := float64(p.cfg.InitialDelay) * math.Pow(factor, float64(attempt-1))
	if p.cfg.MaxDelay > 0 {
		d = math.Min(d, float64(p.cfg.MaxDelay))
	}
	return time.Duration(d)
}

func (p *RetryableTransport) backoff(attempt int) time.Duration {
	d := p.calculateDelay(attempt)
	if j := p.cfg.Jitter; j > 0 && j <= 1 {
		d = time.Duration(float64(d) * (1 - j*rand.Float64()))
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
