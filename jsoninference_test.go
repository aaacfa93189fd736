package jsoninference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/schema"
)

type stubProvider struct {
	content string
	got     llm.Execution
}

func (p *stubProvider) Name() string { return llm.InferenceGPT5.String() }

func (p *stubProvider) OutlineCompletion(ctx context.Context, params llm.OutlineParams, exec llm.Execution) (*llm.Result, error) {
	p.got = exec
	return &llm.Result{Role: llm.RoleAssistant, Content: p.content}, nil
}

func withStub(t *testing.T, content string) *stubProvider {
	t.Helper()
	stub := &stubProvider{content: content}
	reg := llm.NewRegistry()
	reg.Register(llm.InferenceGPT5, func(*zap.Logger) (llm.Provider, error) { return stub, nil })
	SetDefault(reg)
	t.Cleanup(func() { SetDefault(nil) })
	return stub
}

func params() llm.OutlineParams {
	return llm.OutlineParams{
		Format:   schema.Format{Type: "object", Required: []string{"name"}},
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Describe Ada"}},
	}
}

func TestGenerate(t *testing.T) {
	stub := withStub(t, `{"name":"Ada"}`)

	res, err := Generate(context.Background(), llm.InferenceGPT5, params(), "gpt-5-mini", "k1", "k2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ada"}`, res.Content)
	assert.Equal(t, "gpt-5-mini", stub.got.Model)
	assert.Equal(t, []string{"k1", "k2"}, stub.got.Credentials)
}

func TestGenerateObject(t *testing.T) {
	withStub(t, `{"name":"Ada","born":1815,"_context":{"backend":"gpt5_inference"}}`)

	type person struct {
		Name string `json:"name"`
		Born int    `json:"born"`
	}
	got, err := GenerateObject[person](context.Background(), llm.InferenceGPT5, params(), "")
	require.NoError(t, err)
	assert.Equal(t, person{Name: "Ada", Born: 1815}, got)
}

func TestGenerateObject_DecodeError(t *testing.T) {
	withStub(t, `{"name":42}`)

	type person struct {
		Name string `json:"name"`
	}
	_, err := GenerateObject[person](context.Background(), llm.InferenceGPT5, params(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode gpt5_inference result")
}

func TestGenerate_UnknownBackend(t *testing.T) {
	withStub(t, `{}`)

	_, err := Generate(context.Background(), llm.InferenceClaude, params(), "")
	require.Error(t, err)
	assert.True(t, llm.IsCode(err, llm.ErrUnknownBackend))
}

func TestDefault_Builtins(t *testing.T) {
	SetDefault(nil)
	reg := Default()
	assert.Same(t, reg, Default())
	assert.Equal(t, len(llm.InferenceNames()), reg.Len())
}
