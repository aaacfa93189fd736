// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 jsoninfer 命令行与服务端程序入口。

# 概述

cmd/jsoninfer 基于 cobra 组织子命令：serve 启动 HTTP 服务，generate 在本地
直接调用一个后端获取结构化结果，backends 列出后端、获取策略与别名，health 与
version 用于运维。程序支持 YAML 配置文件与 JSONINFER_* 环境变量、结构化日志
（zap）、Prometheus 指标、OpenTelemetry 追踪以及 provider 配置热重载。

# 核心类型

  - Server       — 组装遥测、指标、结果缓存、后端注册表与 server.Manager
  - Middleware   — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - backendRow   — backends 命令的一行输出

# 主要能力

  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    MetricsMiddleware、RequestLogger、CORS、RateLimiter（基于 IP）
  - Provider 装饰：observability 追踪 → Prometheus 指标 → 结果缓存
  - 配置热重载：config.Watcher 回调中按新配置重新注册全部后端
  - 优雅关闭：信号监听 → 关闭 HTTP → 停止监听 → 关闭 Redis → 刷新遥测
  - 终端输出：briandowns/spinner 等待提示，fatih/color 着色
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
