package providers

import (
	"net/http"

	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/strategy"
	"go.uber.org/zap"
)

// Options 是构造后端时可注入的可选组件。
type Options struct {
	Observer   strategy.Observer
	HTTPClient *http.Client
}

// Option 配置 Options。
type Option func(*Options)

// WithObserver 注入尝试结果观察者（指标）。
func WithObserver(o strategy.Observer) Option {
	return func(opts *Options) { opts.Observer = o }
}

// WithHTTPClient 替换默认的加固 HTTP 客户端（测试中指向 httptest 服务）。
func WithHTTPClient(c *http.Client) Option {
	return func(opts *Options) { opts.HTTPClient = c }
}

// ApplyOptions 合并选项。
func ApplyOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WrapTransport 按配置为传输层套上重试；MaxRetries 为 0 时原样返回。
func (c BaseProviderConfig) WrapTransport(t llm.Transport, logger *zap.Logger) llm.Transport {
	if c.MaxRetries <= 0 {
		return t
	}
	rc := DefaultRetryConfig()
	rc.MaxRetries = c.MaxRetries
	return NewRetryableTransport(t, rc, logger)
}
