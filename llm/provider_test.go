package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/BaSui01/jsoninference/llm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_WrappingAndCodes(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewError(ErrUpstreamError, "request failed").WithProvider("grok").WithCause(cause)

	assert.Equal(t, "grok: request failed", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("dispatch: %w", err)
	assert.True(t, IsCode(wrapped, ErrUpstreamError))
	assert.False(t, IsCode(wrapped, ErrRefusal))
	assert.False(t, IsCode(cause, ErrUpstreamError))
}

func TestOutlineParams_UnmarshalBothSchemaForms(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wrapped bool
	}{
		{
			name:    "bare",
			payload: `{"format":{"type":"object","required":["a"]},"messages":[{"role":"user","content":"hi"}]}`,
		},
		{
			name:    "wrapped",
			payload: `{"format":{"type":"json_schema","json_schema":{"name":"x","schema":{"type":"object","required":["a"]}}},"messages":[{"role":"user","content":"hi"}]}`,
			wrapped: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var params OutlineParams
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &params))

			_, isEnvelope := params.Format.(schema.ResponseFormat)
			assert.Equal(t, tt.wrapped, isEnvelope)
			assert.Equal(t, []string{"a"}, schema.Bare(params.Format).Required)
			require.Len(t, params.Messages, 1)
			assert.Equal(t, RoleUser, params.Messages[0].Role)
		})
	}
}

func TestNewToolSchema(t *testing.T) {
	tool, err := NewToolSchema(schema.AnswerTool(schema.Format{Type: "object", Required: []string{"a"}}))
	require.NoError(t, err)

	assert.Equal(t, schema.AnswerToolName, tool.Name)
	assert.JSONEq(t, `{"type":"object","required":["a"]}`, string(tool.Parameters))
}

func TestChatResponse_FirstMessage(t *testing.T) {
	var nilResp *ChatResponse
	_, ok := nilResp.FirstMessage()
	assert.False(t, ok)

	resp := &ChatResponse{Choices: []ChatChoice{{Message: Message{Role: RoleAssistant, Content: "x"}}}}
	msg, ok := resp.FirstMessage()
	assert.True(t, ok)
	assert.Equal(t, "x", msg.Content)
}
