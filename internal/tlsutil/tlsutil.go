package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// aeadSuites 仅对 TLS 1.2 生效；TLS 1.3 的套件不可配置
var aeadSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// DefaultTLSConfig 返回加固后的 TLS 配置，每次调用返回新副本
func DefaultTLSConfig() *tls.Config {
	suites := make([]uint16, len(aeadSuites))
	copy(suites, aeadSuites)
	return &tls.Config{MinVersion: tls.VersionTLS12, CipherSuites: suites}
}

// TransportOptions 调整后端连接池
type TransportOptions struct {
	// MaxConnsPerHost 限制到单个后端的并发连接，0 表示不限
	MaxConnsPerHost int
	// DisableProxy 忽略 HTTPS_PROXY 等环境变量（本地 Ollama 常用）
	DisableProxy bool
}

// Option 修改 TransportOptions
type Option func(*TransportOptions)

// WithMaxConnsPerHost 设置单后端连接上限
func WithMaxConnsPerHost(n int) Option {
	return func(o *TransportOptions) { o.MaxConnsPerHost = n }
}

// WithoutProxy 直连后端
func WithoutProxy() Option {
	return func(o *TransportOptions) { o.DisableProxy = true }
}

// SecureTransport 返回带 TLS 基线的 http.Transport
func SecureTransport(opts ...Option) *http.Transport {
	var o TransportOptions
	for _, opt := range opts {
		opt(&o)
	}

	dialer := &net.Dialer{Timeout: 15 * time.Second, KeepAlive: 30 * time.Second}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       DefaultTLSConfig(),
		TLSHandshakeTimeout:   10 * time.Second,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		MaxConnsPerHost:       o.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if o.DisableProxy {
		tr.Proxy = nil
	}
	return tr
}

// SecureHTTPClient 返回整体超时为 timeout 的客户端；timeout 覆盖一次完整生成，包括读取响应体
func SecureHTTPClient(timeout time.Duration, opts ...Option) *http.Client {
	return &http.Client{Timeout: timeout, Transport: SecureTransport(opts...)}
}
