// Package telemetry 初始化 OpenTelemetry SDK，为 llm/observability 的追踪装饰器
// 与 HTTP 追踪中间件提供 TracerProvider 和 MeterProvider。
//
// 配置了 OTLP 端点时经 gRPC 导出；禁用时返回空 Providers，调用方回退到全局 noop provider。
package telemetry
