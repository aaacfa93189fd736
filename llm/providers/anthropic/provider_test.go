package claude

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

const toolUseReply = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "content": [
    {"type": "tool_use", "id": "toolu_1", "name": "provide_answer", "input": {"message": "Hi"}}
  ],
  "stop_reason": "tool_use",
  "usage": {"input_tokens": 12, "output_tokens": 7}
}`

const textReply = `{
  "id": "msg_0",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "content": [{"type": "text", "text": "Hello!"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 10, "output_tokens": 2}
}`

type captured struct {
	APIKey string
	Body   map[string]any
}

func newServer(t *testing.T, replies ...string) (*httptest.Server, *[]captured) {
	t.Helper()
	var reqs []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		idx := len(reqs)
		reqs = append(reqs, captured{APIKey: r.Header.Get("x-api-key"), Body: body})

		reply := replies[len(replies)-1]
		if idx < len(replies) {
			reply = replies[idx]
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func outline() llm.OutlineParams {
	return llm.OutlineParams{
		Format: schema.Format{
			Type:       "object",
			Required:   []string{"message"},
			Properties: map[string]schema.Property{"message": {Type: "string", Description: "greeting"}},
		},
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Be brief."},
			{Role: llm.RoleUser, Content: "Say"},
			{Role: llm.RoleUser, Content: "hello"},
		},
	}
}

func TestClaudeProvider_ToolUse(t *testing.T) {
	srv, reqs := newServer(t, toolUseReply)
	p := NewClaudeProvider(providers.BaseProviderConfig{BaseURL: srv.URL}, zaptest.NewLogger(t), providers.WithHTTPClient(srv.Client()))
	assert.Equal(t, "claude_inference", p.Name())
	assert.Equal(t, 5, p.MaxAttempts())

	res, err := p.OutlineCompletion(context.Background(), outline(), llm.NewExecution(llm.InferenceClaude, "", "sk-ant-1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Hi"}`, res.Content)
	assert.Equal(t, llm.RoleAssistant, res.Role)

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, "sk-ant-1", got.APIKey)
	assert.Equal(t, DefaultModel, got.Body["model"])
	assert.EqualValues(t, defaultMaxTokens, got.Body["max_tokens"])
	assert.Equal(t, map[string]any{"type": "tool", "name": "provide_answer"}, got.Body["tool_choice"])

	tools, ok := got.Body["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "provide_answer", tool["name"])
	input := tool["input_schema"].(map[string]any)
	assert.Equal(t, "object", input["type"])
	assert.Equal(t, []any{"message"}, input["required"])

	// system 单独传递，相邻 user 消息合并
	system, ok := got.Body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	assert.Contains(t, system[0].(map[string]any)["text"], "Be brief.")
	messages := got.Body["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestClaudeProvider_TextThenToolUse(t *testing.T) {
	srv, reqs := newServer(t, textReply, toolUseReply)
	p := NewClaudeProvider(providers.BaseProviderConfig{BaseURL: srv.URL, MaxTokens: 256}, zaptest.NewLogger(t), providers.WithHTTPClient(srv.Client()))

	res, err := p.OutlineCompletion(context.Background(), outline(), llm.NewExecution(llm.InferenceClaude, "claude-opus-4-1", "k1", "k2"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Hi"}`, res.Content)

	require.Len(t, *reqs, 2)
	assert.Equal(t, "k1", (*reqs)[0].APIKey)
	assert.Equal(t, "k2", (*reqs)[1].APIKey)
	assert.Equal(t, "claude-opus-4-1", (*reqs)[1].Body["model"])
	assert.EqualValues(t, 256, (*reqs)[1].Body["max_tokens"])

	// 纠正提示并入末尾的 user 消息，不产生相邻 user 轮次
	first := (*reqs)[0].Body["messages"].([]any)
	second := (*reqs)[1].Body["messages"].([]any)
	require.Len(t, second, len(first))
	last := second[len(second)-1].(map[string]any)
	assert.Equal(t, "user", last["role"])
	blocks, err := json.Marshal(last["content"])
	require.NoError(t, err)
	assert.Contains(t, string(blocks), "provide_answer tool with valid arguments")
}

func TestClaudeProvider_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	p := NewClaudeProvider(providers.BaseProviderConfig{BaseURL: srv.URL}, zaptest.NewLogger(t), providers.WithHTTPClient(srv.Client()))
	_, err := p.OutlineCompletion(context.Background(), outline(), llm.NewExecution(llm.InferenceClaude, "", "bad"))
	require.Error(t, err)
	assert.True(t, llm.IsCode(err, llm.ErrUnauthorized))
}

func TestTransport_ToChatResponse(t *testing.T) {
	srv, _ := newServer(t, `{
	  "id": "msg_2", "type": "message", "role": "assistant", "model": "claude-sonnet-4-5",
	  "content": [
	    {"type": "thinking", "thinking": "plan", "signature": "sig"},
	    {"type": "text", "text": "I can't help with that."}
	  ],
	  "stop_reason": "refusal",
	  "usage": {"input_tokens": 3, "output_tokens": 4}
	}`)
	tr := NewTransport(TransportConfig{BaseURL: srv.URL, Client: srv.Client()}, zaptest.NewLogger(t))

	resp, err := tr.Completion(llm.WithCredential(context.Background(), "k"), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}},
	})
	require.NoError(t, err)
	msg, ok := resp.FirstMessage()
	require.True(t, ok)
	assert.Equal(t, "plan", msg.ReasoningContent)
	assert.Equal(t, "I can't help with that.", msg.Refusal)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.Equal(t, "claude_inference", resp.Provider)
}

func TestToolInput(t *testing.T) {
	assert.JSONEq(t, `{}`, string(toolInput(nil)))
	assert.JSONEq(t, `{"a":1}`, string(toolInput(json.RawMessage(`{"a":1}`))))
	assert.JSONEq(t, `{"a":1}`, string(toolInput(json.RawMessage(`"{\"a\":1}"`))))
	assert.JSONEq(t, `{}`, string(toolInput(json.RawMessage(`"not json"`))))
}

func TestTransport_ToolInputSchemaKeepsKeywords(t *testing.T) {
	srv, reqs := newServer(t, toolUseReply)
	tr := NewTransport(TransportConfig{BaseURL: srv.URL, Client: srv.Client()}, zaptest.NewLogger(t))

	params := json.RawMessage(`{"type":"object","additionalProperties":false,"required":["n"],"properties":{"n":{"type":["integer","null"],"minimum":1},"k":{"enum":[1,2]}},"$defs":{"x":{"type":"string"}}}`)
	_, err := tr.Completion(llm.WithCredential(context.Background(), "k"), &llm.ChatRequest{
		Messages:   []llm.Message{{Role: llm.RoleUser, Content: "x"}},
		Tools:      []llm.ToolSchema{{Name: schema.AnswerToolName, Parameters: params}},
		ToolChoice: schema.AnswerToolName,
	})
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	tools := (*reqs)[0].Body["tools"].([]any)
	sent, err := json.Marshal(tools[0].(map[string]any)["input_schema"])
	require.NoError(t, err)
	assert.JSONEq(t, string(params), string(sent))
}

func TestInputSchema(t *testing.T) {
	empty, err := inputSchema(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, empty.Properties)
	assert.Nil(t, empty.ExtraFields)

	full, err := inputSchema(json.RawMessage(`{"type":"object","required":["a"],"properties":{"a":{"type":"string"}},"additionalProperties":false}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, full.Required)
	assert.Equal(t, map[string]any{"additionalProperties": false}, full.ExtraFields)

	_, err = inputSchema(json.RawMessage(`[1]`))
	assert.Error(t, err)
}
