package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/schema"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	textReply = `{"model":"gpt-oss:120b","created_at":"2026-01-01T00:00:00Z","message":{"role":"assistant","content":"Hello!"},"done":true,"done_reason":"stop"}`
	toolReply = `{"model":"gpt-oss:120b","created_at":"2026-01-01T00:00:00Z","message":{"role":"assistant","content":"","thinking":"user wants a greeting","tool_calls":[{"function":{"name":"provide_answer","arguments":{"message":"Hi"}}}]},"done":true,"done_reason":"stop","prompt_eval_count":9,"eval_count":3}`
)

type captured struct {
	Auth string
	Body map[string]any
}

func scriptedServer(t *testing.T, replies ...string) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		mu.Lock()
		idx := len(reqs)
		reqs = append(reqs, captured{Auth: r.Header.Get("Authorization"), Body: body})
		mu.Unlock()

		reply := replies[len(replies)-1]
		if idx < len(replies) {
			reply = replies[idx]
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), reqs...)
	}
}

func params() llm.OutlineParams {
	return llm.OutlineParams{
		Format: schema.ResponseFormat{
			Type: "json_schema",
			JSONSchema: &schema.JSONSchema{
				Name: "greeting",
				Schema: schema.Format{
					Type:       "object",
					Required:   []string{"message"},
					Properties: map[string]schema.Property{"message": {Type: "string", Description: "greeting"}},
				},
			},
		},
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Say hello"}},
	}
}

func TestOllamaProvider_PlainTextThenToolCall(t *testing.T) {
	srv, requests := scriptedServer(t, textReply, toolReply)
	p, err := NewOllamaProvider(providers.BaseProviderConfig{BaseURL: srv.URL}, zaptest.NewLogger(t), providers.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	assert.Equal(t, "ollama_inference", p.Name())
	assert.Equal(t, DefaultMaxAttempts, p.MaxAttempts())

	res, err := p.OutlineCompletion(context.Background(), params(), llm.NewExecution(llm.InferenceOllama, "qwen3:8b", "ollama-key"))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content), &out))
	assert.Equal(t, "Hi", out["message"])
	assert.Equal(t, map[string]any{"backend": "ollama_inference", "model": "qwen3:8b"}, out["_context"])
	assert.NotContains(t, out, "_thinking")
	assert.NotContains(t, res.Content, "ollama-key")

	reqs := requests()
	require.Len(t, reqs, 2)
	first := reqs[0]
	assert.Equal(t, "Bearer ollama-key", first.Auth)
	assert.Equal(t, "qwen3:8b", first.Body["model"])
	assert.Equal(t, false, first.Body["stream"])
	assert.Equal(t, true, first.Body["think"])
	assert.NotContains(t, first.Body, "tool_choice")

	tools := first.Body["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "provide_answer", fn["name"])

	// 首条为 system 指令；第二次请求追加一条纠正提示
	firstMsgs := first.Body["messages"].([]any)
	assert.Equal(t, "system", firstMsgs[0].(map[string]any)["role"])
	secondMsgs := reqs[1].Body["messages"].([]any)
	require.Len(t, secondMsgs, len(firstMsgs)+1)
	assert.Equal(t, "user", secondMsgs[len(secondMsgs)-1].(map[string]any)["role"])
}

func TestOllamaProvider_Exhausted(t *testing.T) {
	srv, requests := scriptedServer(t, textReply)
	p, err := NewOllamaProvider(providers.BaseProviderConfig{BaseURL: srv.URL}, zaptest.NewLogger(t), providers.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = p.OutlineCompletion(context.Background(), params(), llm.NewExecution(llm.InferenceOllama, ""))
	require.Error(t, err)
	assert.True(t, llm.IsCode(err, llm.ErrAttemptsExhausted))
	assert.Contains(t, err.Error(), "exceeded maximum attempts (3)")

	reqs := requests()
	assert.Len(t, reqs, DefaultMaxAttempts)
	assert.Empty(t, reqs[0].Auth)
	assert.Equal(t, DefaultModel, reqs[0].Body["model"])
}

func TestOllamaProvider_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"too many requests"}`)
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(providers.BaseProviderConfig{BaseURL: srv.URL}, zaptest.NewLogger(t), providers.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = p.OutlineCompletion(context.Background(), params(), llm.NewExecution(llm.InferenceOllama, "", "k"))
	require.Error(t, err)
	assert.True(t, llm.IsCode(err, llm.ErrRateLimited))

	var statusErr api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "too many requests", statusErr.ErrorMessage)
}

func TestTransport_HostSelection(t *testing.T) {
	tr, err := NewTransport(TransportConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, LocalHost, tr.hostFor(context.Background()))
	assert.Equal(t, CloudHost, tr.hostFor(llm.WithCredential(context.Background(), "k")))

	fixed, err := NewTransport(TransportConfig{BaseURL: "http://ollama.internal:11434/"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "http://ollama.internal:11434", fixed.hostFor(llm.WithCredential(context.Background(), "k")))
}

func TestArgumentsObject(t *testing.T) {
	assert.Equal(t, "", argumentsObject(nil))
	assert.Equal(t, "", argumentsObject(json.RawMessage(`null`)))
	assert.Equal(t, `{"a":1}`, argumentsObject(json.RawMessage(`{"a":1}`)))
	assert.Equal(t, `{"a":1}`, argumentsObject(json.RawMessage(`"{\"a\":1}"`)))
	assert.Equal(t, "", argumentsObject(json.RawMessage(`"oops"`)))
}

func TestOllamaProvider_ToolParametersKeepFullSchema(t *testing.T) {
	const raw = `{"type":"object","additionalProperties":false,"required":["age","tag"],"properties":{"age":{"type":["integer","null"],"minimum":0},"tag":{"anyOf":[{"type":"string"},{"enum":[1,2]}]}}}`
	src, err := schema.Decode([]byte(raw))
	require.NoError(t, err)

	reply := `{"model":"qwen3:8b","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"provide_answer","arguments":{"age":3,"tag":"x"}}}]},"done":true,"done_reason":"stop"}`
	srv, requests := scriptedServer(t, reply)
	p, err := NewOllamaProvider(providers.BaseProviderConfig{BaseURL: srv.URL}, zaptest.NewLogger(t), providers.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = p.OutlineCompletion(context.Background(), llm.OutlineParams{
		Format:   src,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Describe"}},
	}, llm.NewExecution(llm.InferenceOllama, "qwen3:8b"))
	require.NoError(t, err)

	reqs := requests()
	require.NotEmpty(t, reqs)
	tools := reqs[0].Body["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	sent, err := json.Marshal(fn["parameters"])
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(sent))
}
