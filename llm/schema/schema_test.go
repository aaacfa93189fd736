package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greetingFormat() Format {
	return Format{
		Type:     "object",
		Required: []string{"message"},
		Properties: map[string]Property{
			"message": {Type: "string", Description: "x"},
		},
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wrapped bool
		wantErr bool
	}{
		{
			name:  "bare schema",
			input: `{"type":"object","required":["message"],"properties":{"message":{"type":"string","description":"x"}}}`,
		},
		{
			name:    "wrapped envelope",
			input:   `{"type":"json_schema","json_schema":{"name":"greeting","schema":{"type":"object","required":["message"],"properties":{"message":{"type":"string","description":"x"}}}}}`,
			wrapped: true,
		},
		{
			name:    "null json_schema",
			input:   `{"type":"json_schema","json_schema":null}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			input:   `[1,2]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Decode([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			_, isEnvelope := src.(ResponseFormat)
			assert.Equal(t, tt.wrapped, isEnvelope)

			bare := Bare(src)
			assert.Equal(t, "object", bare.Type)
			assert.Equal(t, []string{"message"}, bare.Required)
			assert.Equal(t, "string", bare.Properties["message"].Type)

			want, err := json.Marshal(greetingFormat())
			require.NoError(t, err)
			got, err := json.Marshal(bare)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(got))
		})
	}
}

func TestEnvelope_KeepsWrappedInput(t *testing.T) {
	strict := true
	rf := ResponseFormat{
		Type: TypeJSONSchema,
		JSONSchema: &JSONSchema{
			Name:   "greeting",
			Schema: greetingFormat(),
			Strict: &strict,
		},
	}

	assert.Equal(t, rf, Envelope(rf))
	assert.Equal(t, rf, Envelope(&rf))
}

func TestEnvelope_WrapsBareSchema(t *testing.T) {
	rf := Envelope(greetingFormat())

	assert.Equal(t, TypeJSONSchema, rf.Type)
	require.NotNil(t, rf.JSONSchema)
	assert.Equal(t, AnswerToolName, rf.JSONSchema.Name)
	assert.Equal(t, greetingFormat(), rf.JSONSchema.Schema)

	data, err := json.Marshal(rf)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"json_schema","json_schema":{"name":"provide_answer","schema":{"type":"object","required":["message"],"properties":{"message":{"type":"string","description":"x"}}}}}`,
		string(data))
}

func TestBare_NilInputs(t *testing.T) {
	var f *Format
	var rf *ResponseFormat

	assert.Equal(t, Format{Type: "object"}, Bare(f))
	assert.Equal(t, Format{Type: "object"}, Bare(rf))
	assert.Equal(t, Format{Type: "object"}, Bare(ResponseFormat{Type: TypeJSONSchema}))
	assert.Equal(t, Format{Type: "object"}, Bare(nil))
}

func TestAnswerTool(t *testing.T) {
	tool := AnswerTool(Format{Required: []string{"a"}})

	assert.Equal(t, "provide_answer", tool.Name)
	assert.Contains(t, tool.Description, "provide_answer")
	assert.Equal(t, "object", tool.Parameters.Type)
	assert.Equal(t, []string{"a"}, tool.Parameters.Required)
}

func TestDecode_KeepsUnknownKeywords(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"numeric bound", `{"type":"object","properties":{"age":{"type":"integer","minimum":0,"maximum":150}}}`},
		{"nested closed object", `{"type":"object","additionalProperties":false,"properties":{"addr":{"type":"object","additionalProperties":false,"properties":{"zip":{"type":"string","pattern":"^[0-9]{5}$"}},"required":["zip"]}},"required":["addr"]}`},
		{"anyOf", `{"type":"object","properties":{"id":{"anyOf":[{"type":"string"},{"type":"integer"}]}}}`},
		{"nullable union", `{"type":"object","properties":{"count":{"type":["integer","null"]}},"required":["count"]}`},
		{"numeric enum", `{"type":"object","properties":{"level":{"enum":[1,2,3]}}}`},
		{"defs and refs", `{"$defs":{"tag":{"type":"string"}},"type":"object","properties":{"tags":{"type":"array","items":{"$ref":"#/$defs/tag"}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Decode([]byte(tt.input))
			require.NoError(t, err)

			bare, err := json.Marshal(Bare(src))
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(bare))

			envelope, err := json.Marshal(Envelope(src))
			require.NoError(t, err)
			wrapped, err := Decode(envelope)
			require.NoError(t, err)
			again, err := json.Marshal(Bare(wrapped))
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(again))

			params, err := json.Marshal(AnswerTool(Bare(src)).Parameters)
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(params))
		})
	}
}

func TestDecode_ParsesLenientView(t *testing.T) {
	src, err := Decode([]byte(`{"type":"object","additionalProperties":false,"required":["count"],"properties":{"count":{"type":["null","integer"]},"level":{"enum":[1,"two"]},"any":true}}`))
	require.NoError(t, err)

	f := Bare(src)
	require.NotNil(t, f.AdditionalProperties)
	assert.False(t, *f.AdditionalProperties)
	assert.Equal(t, []string{"count"}, f.Required)
	assert.Equal(t, "integer", f.Properties["count"].Type)
	assert.Equal(t, []any{float64(1), "two"}, f.Properties["level"].Enum)
	assert.NotContains(t, f.Properties, "any")
	assert.NotEmpty(t, f.Raw())
}

func TestAnswerTool_InjectsObjectTypeIntoRawSchema(t *testing.T) {
	src, err := Decode([]byte(`{"properties":{"n":{"type":"number","minimum":1}},"required":["n"]}`))
	require.NoError(t, err)

	tool := AnswerTool(Bare(src))
	assert.Equal(t, "object", tool.Parameters.Type)

	data, err := json.Marshal(tool.Parameters)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"n":{"type":"number","minimum":1}},"required":["n"]}`, string(data))
}
