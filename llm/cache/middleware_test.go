package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	llmpkg "github.com/BaSui01/jsoninference/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingProvider struct {
	calls atomic.Int32
	err   error
}

func (p *countingProvider) Name() string { return "gpt5_inference" }

func (p *countingProvider) OutlineCompletion(ctx context.Context, params llmpkg.OutlineParams, exec llmpkg.Execution) (*llmpkg.Result, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return &llmpkg.Result{Role: llmpkg.RoleAssistant, Content: `{"message":"Hi"}`}, nil
}

type recorder struct {
	hits, misses int
}

func (r *recorder) RecordCacheHit(string)  { r.hits++ }
func (r *recorder) RecordCacheMiss(string) { r.misses++ }

func TestMiddleware_CachesSuccess(t *testing.T) {
	_, c := newTestCache(t, nil)
	inner := &countingProvider{}
	rec := &recorder{}
	p := Middleware(c, zaptest.NewLogger(t), rec)(inner)
	assert.Equal(t, "gpt5_inference", p.Name())

	ctx := context.Background()
	first, err := p.OutlineCompletion(ctx, sampleParams(), llmpkg.NewExecution(llmpkg.InferenceGPT5, "gpt-5", "k1"))
	require.NoError(t, err)
	second, err := p.OutlineCompletion(ctx, sampleParams(), llmpkg.NewExecution(llmpkg.InferenceGPT5, "gpt-5", "k2"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, inner.calls.Load())
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)

	// 不同模型不命中
	_, err = p.OutlineCompletion(ctx, sampleParams(), llmpkg.NewExecution(llmpkg.InferenceGPT5, "gpt-5-mini"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestMiddleware_DoesNotCacheErrors(t *testing.T) {
	_, c := newTestCache(t, nil)
	inner := &countingProvider{err: errors.New("boom")}
	p := Middleware(c, nil, nil)(inner)

	for i := 0; i < 2; i++ {
		_, err := p.OutlineCompletion(context.Background(), sampleParams(), llmpkg.NewExecution(llmpkg.InferenceGPT5, ""))
		require.Error(t, err)
	}
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestMiddleware_RedisDownFallsThrough(t *testing.T) {
	mr, c := newTestCache(t, &Config{EnableRedis: true})
	mr.Close()

	inner := &countingProvider{}
	p := Middleware(c, zaptest.NewLogger(t), nil)(inner)

	res, err := p.OutlineCompletion(context.Background(), sampleParams(), llmpkg.NewExecution(llmpkg.InferenceGPT5, ""))
	require.NoError(t, err)
	assert.Equal(t, `{"message":"Hi"}`, res.Content)
	assert.EqualValues(t, 1, inner.calls.Load())
}
