package grok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/providers"
	"github.com/BaSui01/jsoninference/llm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var messageFormat = schema.Format{
	Type:     "object",
	Required: []string{"message"},
	Properties: map[string]schema.Property{
		"message": {Type: "string", Description: "x"},
	},
}

func newServer(t *testing.T, reply string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer xai-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGrokProvider_RepairsTrailingComma(t *testing.T) {
	var body map[string]any
	srv := newServer(t, `{"choices":[{"message":{"role":"assistant","content":"{\"message\": \"Hello\",}"}}]}`, &body)

	p := NewGrokProvider(providers.BaseProviderConfig{BaseURL: srv.URL}, zaptest.NewLogger(t), providers.WithHTTPClient(srv.Client()))
	assert.Equal(t, "grok_inference", p.Name())

	res, err := p.OutlineCompletion(context.Background(), llm.OutlineParams{
		Format:   messageFormat,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Say hello"}},
	}, llm.NewExecution(llm.InferenceGrok, "grok-4", "xai-key"))
	require.NoError(t, err)

	assert.Equal(t, llm.RoleAssistant, res.Role)
	assert.JSONEq(t, `{"message":"Hello"}`, res.Content)

	assert.EqualValues(t, DefaultMaxTokens, body["max_tokens"])
	assert.Equal(t, "grok-4", body["model"])
	rf, ok := body["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", rf["type"])
	js, ok := rf["json_schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, schema.AnswerToolName, js["name"])
	assert.NotContains(t, body, "tools")
}

func TestGrokProvider_RefusalIsFatal(t *testing.T) {
	var body map[string]any
	srv := newServer(t, `{"choices":[{"message":{"role":"assistant","content":"","refusal":"I can't help with that"}}]}`, &body)

	p := NewGrokProvider(providers.BaseProviderConfig{BaseURL: srv.URL, MaxTokens: 100}, nil, providers.WithHTTPClient(srv.Client()))
	_, err := p.OutlineCompletion(context.Background(), llm.OutlineParams{
		Format:   schema.Wrap(messageFormat),
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Say hello"}},
	}, llm.NewExecution(llm.InferenceGrok, "grok-4", "xai-key"))

	require.Error(t, err)
	assert.True(t, llm.IsCode(err, llm.ErrRefusal))
	assert.Contains(t, err.Error(), "I can't help with that")
	assert.EqualValues(t, 100, body["max_tokens"])
}
