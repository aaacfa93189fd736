/*
Package handlers 提供 jsoninfer HTTP API 的请求处理器实现。

# 核心类型

  - GenerateHandler — POST /v1/generate 与 GET /v1/backends，
    通过 Dispatcher（*llm.Registry）调用后端
  - HealthHandler   — /health 存活检查与 /ready 依赖检查
  - Response        — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo       — 结构化错误信息，含 code、message、provider、retryable
  - ResponseWriter  — 包装 http.ResponseWriter 以捕获状态码与字节数

# 错误映射

llm.Error 的错误码映射为 HTTP 状态：未知后端 404，拒答 422，
尝试次数用尽与不合规输出 502，上游限流 429，上游超时 504。
*/
package handlers
