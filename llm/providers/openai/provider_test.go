package openai

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
	"go.uber.org/zap"
)

func reply(content, refusal string) string {
	msg := map[string]any{"role": "assistant", "content": content}
	if refusal != "" {
		msg["refusal"] = refusal
	}
	data, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   DefaultModel,
		"choices": []any{map[string]any{"index": 0, "finish_reason": "stop", "message": msg}},
	})
	return string(data)
}

func TestOpenAIProvider_Name(t *testing.T) {
	provider := NewOpenAIProvider(providers.BaseProviderConfig{}, zap.NewNop())
	assert.Equal(t, "gpt5_inference", provider.Name())
}

func TestOpenAIProvider_OutlineCompletion(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		refusal   string
		want      string
		wantCode  llm.ErrorCode
		wantError bool
	}{
		{name: "valid json", content: `{"message":"Hello"}`, want: `{"message":"Hello"}`},
		{name: "trailing comma repaired", content: `{"message": "Hello",}`, want: `{"message":"Hello"}`},
		{name: "refusal fatal", refusal: "no", wantError: true, wantCode: llm.ErrRefusal},
		{name: "missing required", content: `{"other":1}`, wantError: true, wantCode: llm.ErrNonCompliance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			var body map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, reply(tt.content, tt.refusal))
			}))
			defer srv.Close()

			p := NewOpenAIProvider(providers.BaseProviderConfig{BaseURL: srv.URL}, zap.NewNop(), providers.WithHTTPClient(srv.Client()))
			res, err := p.OutlineCompletion(context.Background(), llm.OutlineParams{
				Format: schema.Format{
					Type:       "object",
					Required:   []string{"message"},
					Properties: map[string]schema.Property{"message": {Type: "string", Description: "x"}},
				},
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "Say hello"}},
			}, llm.NewExecution(llm.InferenceGPT5, "", "sk-test"))

			assert.Equal(t, 1, calls)
			assert.Equal(t, DefaultModel, body["model"])
			if tt.wantError {
				require.Error(t, err)
				assert.True(t, llm.IsCode(err, tt.wantCode))
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, res.Content)
		})
	}
}
