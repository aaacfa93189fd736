package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BaSui01/jsoninference/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type scriptedTransport struct {
	errs  []error
	calls int
}

func (s *scriptedTransport) Name() string { return "scripted" }

func (s *scriptedTransport) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return nil, s.errs[s.calls-1]
	}
	return &llm.ChatResponse{Model: req.Model}, nil
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
		RetryableOnly: true,
	}
}

func TestRetryableTransport_RetriesRetryableErrors(t *testing.T) {
	inner := &scriptedTransport{errs: []error{
		MapHTTPError(503, "unavailable", "x"),
		MapHTTPError(429, "slow down", "x"),
	}}
	rt := NewRetryableTransport(inner, fastRetry(3), zaptest.NewLogger(t))

	resp, err := rt.Completion(context.Background(), &llm.ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "m", resp.Model)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "scripted", rt.Name())
}

func TestRetryableTransport_StopsOnNonRetryable(t *testing.T) {
	inner := &scriptedTransport{errs: []error{MapHTTPError(401, "bad key", "x")}}
	rt := NewRetryableTransport(inner, fastRetry(3), nil)

	_, err := rt.Completion(context.Background(), &llm.ChatRequest{})
	assert.True(t, llm.IsCode(err, llm.ErrUnauthorized))
	assert.Equal(t, 1, inner.calls)

	inner = &scriptedTransport{errs: []error{errors.New("plain error")}}
	rt = NewRetryableTransport(inner, fastRetry(3), nil)
	_, err = rt.Completion(context.Background(), &llm.ChatRequest{})
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryableTransport_GivesUpAfterMaxRetries(t *testing.T) {
	unavailable := MapHTTPError(503, "unavailable", "x")
	inner := &scriptedTransport{errs: []error{unavailable, unavailable, unavailable, unavailable}}
	rt := NewRetryableTransport(inner, fastRetry(2), nil)

	_, err := rt.Completion(context.Background(), &llm.ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.True(t, llm.IsCode(err, llm.ErrUpstreamError))
	assert.Equal(t, 3, inner.calls)
}

func TestRetryableTransport_ZeroRetriesIsSingleCall(t *testing.T) {
	unavailable := MapHTTPError(503, "unavailable", "x")
	inner := &scriptedTransport{errs: []error{unavailable}}
	rt := NewRetryableTransport(inner, fastRetry(0), nil)

	_, err := rt.Completion(context.Background(), &llm.ChatRequest{})
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryableTransport_CalculateDelayCapped(t *testing.T) {
	rt := NewRetryableTransport(&scriptedTransport{}, RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     250 * time.Millisecond,
	}, nil)

	assert.Equal(t, 100*time.Millisecond, rt.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, rt.calculateDelay(2))
	assert.Equal(t, 250*time.Millisecond, rt.calculateDelay(3))
}

func TestRetryableTransport_JitterStaysInRange(t *testing.T) {
	rt := NewRetryableTransport(&scriptedTransport{}, RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		Jitter:       0.5,
	}, nil)
	for i := 0; i < 50; i++ {
		d := rt.backoff(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}

func TestRetryableTransport_CancelledWhileWaiting(t *testing.T) {
	unavailable := MapHTTPError(503, "unavailable", "x")
	inner := &scriptedTransport{errs: []error{unavailable, unavailable}}
	rt := NewRetryableTransport(inner, RetryConfig{MaxRetries: 3, InitialDelay: time.Hour, RetryableOnly: true}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := rt.Completion(ctx, &llm.ChatRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, inner.calls)
}
