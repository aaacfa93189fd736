package providers

import "time"

// BaseProviderConfig 所有后端共享的配置字段。
// 凭据不在此配置：每次调用通过 llm.Execution 传入。
type BaseProviderConfig struct {
	BaseURL string        `json:"base_url,omitempty" yaml:"base_url,omitempty" env:"BASE_URL"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty" env:"MODEL"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`

	// MaxAttempts 仅对 Tool-Forcing 后端生效，0 表示使用后端默认值
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" env:"MAX_ATTEMPTS"`
	MaxTokens   int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" env:"MAX_TOKENS"`

	// MaxRetries 是传输层对可重试错误（429/5xx）的重试次数，0 表示不重试
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty" env:"MAX_RETRIES"`

	// RateLimit 每秒请求数，0 表示不限流
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty" env:"RATE_LIMIT"`
	Burst     int     `json:"burst,omitempty" yaml:"burst,omitempty" env:"BURST"`
}

// AttemptsOr 返回配置的尝试次数，未配置时返回 def。
func (c BaseProviderConfig) AttemptsOr(def int) int {
	if c.MaxAttempts > 0 {
		return c.MaxAttempts
	}
	return def
}

// TokensOr 返回配置的 max_tokens，未配置时返回 def。
func (c BaseProviderConfig) TokensOr(def int) int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return def
}
