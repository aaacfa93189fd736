// Package tlsutil 为各推理后端的传输层构造 HTTP 客户端。
//
// 统一 TLS 基线（TLS 1.2+，仅 AEAD 密码套件），并遵循 HTTPS_PROXY/NO_PROXY 环境变量。
package tlsutil
