// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖 HTTP、结构化输出获取
与结果缓存三个维度。

# 核心类型

  - Collector：指标收集器，通过 promauto.With 注册到指定 Registerer，
    按 namespace 隔离。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 获取指标：获取总数与耗时（backend/model/status），
    status 为 success、canceled 或 llm.ErrorCode。
  - 尝试指标：实现 strategy.Observer，按 backend/outcome 计数每次尝试。
  - 缓存指标：命中与未命中计数，按 backend 分组。
  - Collector.Middleware 作为 llm.ProviderMiddleware 装配到 Registry。
*/
package metrics
