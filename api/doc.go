// Package api 定义 jsoninfer HTTP 接口的请求/响应类型。
//
// # API 概览
//
//   - POST /v1/generate  — 从指定后端获取满足 JSON Schema 的结构化输出
//   - GET  /v1/backends  — 列出已注册的后端标识
//   - GET  /health       — 存活检查
//   - GET  /ready        — 就绪检查（含 Redis 等依赖）
//   - GET  /metrics      — Prometheus 指标
//
// # 凭据
//
// 后端 API Key 随请求传入，不写入配置：
//
//	Authorization: Bearer <key>
//	X-Inference-Key: <key1>, <key2>
//
// 多个 key 按尝试次数轮换使用。
package api
