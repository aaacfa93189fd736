package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

type credentialKey struct{}

// Execution 是单次调用的执行上下文。
// 按值传递，每次调用独立构造，不在调用之间共享可变状态。
type Execution struct {
	Backend     InferenceName
	Model       string
	Credentials []string
}

// NewExecution 创建执行上下文；凭据切片会被复制。
func NewExecution(backend InferenceName, model string, credentials ...string) Execution {
	creds := make([]string, 0, len(credentials))
	for _, c := range credentials {
		if c != "" {
			creds = append(creds, c)
		}
	}
	return Execution{Backend: backend, Model: model, Credentials: creds}
}

// Credential 按尝试序号轮换选择凭据；没有凭据时返回空串。
func (e Execution) Credential(attempt int) string {
	if len(e.Credentials) == 0 {
		return ""
	}
	if attempt < 0 {
		attempt = 0
	}
	return e.Credentials[attempt%len(e.Credentials)]
}

func (e Execution) String() string {
	return fmt.Sprintf("Execution{Backend:%s, Model:%s, Credentials:%d×***}", e.Backend, e.Model, len(e.Credentials))
}

// MarshalJSON 不输出凭据明文。
func (e Execution) MarshalJSON() ([]byte, error) {
	type masked struct {
		Backend     InferenceName `json:"backend"`
		Model       string        `json:"model"`
		Credentials int           `json:"credentials"`
	}
	return json.Marshal(masked{Backend: e.Backend, Model: e.Model, Credentials: len(e.Credentials)})
}

// WithCredential 在 ctx 中写入本次请求使用的凭据。
// 传入空串不会改变 ctx。
func WithCredential(ctx context.Context, apiKey string) context.Context {
	if apiKey == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialKey{}, apiKey)
}

// CredentialFromContext 从 ctx 读取凭据。
func CredentialFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(credentialKey{}).(string)
	return v, ok && v != ""
}
