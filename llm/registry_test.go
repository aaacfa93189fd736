package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 模拟 Provider
// =============================================================================

type stubProvider struct {
	name    string
	lastRun Execution
	mu      sync.Mutex
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) OutlineCompletion(ctx context.Context, params OutlineParams, exec Execution) (*Result, error) {
	p.mu.Lock()
	p.lastRun = exec
	p.mu.Unlock()
	return &Result{Role: RoleAssistant, Content: `{"from":"` + p.name + `"}`}, nil
}

func countingConstructor(name string, calls *int32) Constructor {
	return func(logger *zap.Logger) (Provider, error) {
		atomic.AddInt32(calls, 1)
		return &stubProvider{name: name}, nil
	}
}

func TestRegistry_ResolveConstructsOnce(t *testing.T) {
	reg := NewRegistry()
	var calls int32
	reg.Register(InferenceGPT5, countingConstructor("gpt5", &calls))

	first, err := reg.Resolve(InferenceGPT5)
	require.NoError(t, err)
	second, err := reg.Resolve(InferenceGPT5)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRegistry_ConcurrentFirstUse(t *testing.T) {
	reg := NewRegistry()
	var calls int32
	reg.Register(InferenceOllama, countingConstructor("ollama", &calls))

	var wg sync.WaitGroup
	results := make([]Provider, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := reg.Resolve(InferenceOllama)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		assert.Same(t, results[0], p)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRegistry_UnknownBackend(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Resolve(InferenceCohere)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrUnknownBackend))

	_, err = reg.Dispatch(context.Background(), "nope_inference", OutlineParams{}, "m")
	assert.True(t, IsCode(err, ErrUnknownBackend))
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	reg := NewRegistry()
	var firstCalls, secondCalls int32
	reg.Register(InferenceGrok, countingConstructor("first", &firstCalls))

	p, err := reg.Resolve(InferenceGrok)
	require.NoError(t, err)
	assert.Equal(t, "first", p.Name())

	reg.Register(InferenceGrok, countingConstructor("second", &secondCalls))
	p, err = reg.Resolve(InferenceGrok)
	require.NoError(t, err)
	assert.Equal(t, "second", p.Name())
	assert.Equal(t, int32(1), atomic.LoadInt32(&secondCalls))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_ConstructorError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(InferenceHF, func(*zap.Logger) (Provider, error) {
		return nil, errors.New("boom")
	})

	_, err := reg.Resolve(InferenceHF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRegistry_DispatchPassesFreshExecution(t *testing.T) {
	reg := NewRegistry()
	stub := &stubProvider{name: "cohere"}
	reg.Register(InferenceCohere, func(*zap.Logger) (Provider, error) { return stub, nil })

	creds := []string{"k1", "k2"}
	res, err := reg.Dispatch(context.Background(), InferenceCohere, OutlineParams{}, "command-a", creds...)
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, res.Role)

	creds[0] = "mutated"
	assert.Equal(t, InferenceCohere, stub.lastRun.Backend)
	assert.Equal(t, "command-a", stub.lastRun.Model)
	assert.Equal(t, []string{"k1", "k2"}, stub.lastRun.Credentials)
}

func TestRegistry_MiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(label string) ProviderMiddleware {
		return func(next Provider) Provider {
			order = append(order, label)
			return next
		}
	}

	reg := NewRegistry(WithMiddleware(tag("outer"), tag("inner")))
	reg.Register(InferenceGroq, func(*zap.Logger) (Provider, error) { return &stubProvider{name: "groq"}, nil })

	_, err := reg.Resolve(InferenceGroq)
	require.NoError(t, err)
	assert.Equal(t, []string{"inner", "outer"}, order)
}

func TestRegistry_NamesAndUnregister(t *testing.T) {
	reg := NewRegistry()
	var calls int32
	reg.Register(InferenceMistral, countingConstructor("mistral", &calls))
	reg.Register(InferenceClaude, countingConstructor("claude", &calls))

	assert.Equal(t, []InferenceName{InferenceClaude, InferenceMistral}, reg.Names())

	reg.Unregister(InferenceClaude)
	_, err := reg.Resolve(InferenceClaude)
	assert.True(t, IsCode(err, ErrUnknownBackend))
}
