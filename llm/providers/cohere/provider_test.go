package cohere

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

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func TestCohereProvider_KeepsAssistantTurnsSeparate(t *testing.T) {
	var body struct {
		Messages       []wireMessage  `json:"messages"`
		ResponseFormat map[string]any `json:"response_format"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/compatibility/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer co-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","created":1,"model":"command-a","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"ok\":true,}"}}]}`)
	}))
	defer srv.Close()

	p := NewCohereProvider(providers.BaseProviderConfig{BaseURL: srv.URL + "/compatibility/v1"}, zaptest.NewLogger(t), providers.WithHTTPClient(srv.Client()))
	assert.Equal(t, "cohere_inference", p.Name())

	res, err := p.OutlineCompletion(context.Background(), llm.OutlineParams{
		Format: schema.Format{Type: "object", Required: []string{"ok"}},
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "sys"},
			{Role: llm.RoleUser, Content: "u1"},
			{Role: llm.RoleUser, Content: "u2"},
			{Role: llm.RoleAssistant, Content: "a1"},
			{Role: llm.RoleAssistant, Content: "a2"},
		},
	}, llm.NewExecution(llm.InferenceCohere, "command-a", "co-key"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, res.Content)

	assert.Equal(t, []wireMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "u1\nu2"},
		{Role: "assistant", Content: "a1"},
		{Role: "assistant", Content: "a2"},
	}, body.Messages)
	assert.Equal(t, "json_schema", body.ResponseFormat["type"])
}
