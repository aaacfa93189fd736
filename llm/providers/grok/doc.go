// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 grok 提供 xAI Grok 后端的结构化输出适配实现。该包基于
openaicompat 兼容层封装，对接 xAI API（api.x.ai），使用 Native-Format
策略：单次请求携带 response_format 信封，由服务端约束输出结构。

# 核心结构体

  - GrokProvider — 嵌入 strategy.NativeFormat，配置 xAI 专属
    BaseURL（api.x.ai），使用 Bearer Token 认证

# 构造函数

  - NewGrokProvider(cfg, logger, opts...) — 创建实例，默认模型 grok-4，
    max_tokens 默认 5000

# 行为

  - 会话原样转发，不做角色规范化
  - 拒答（refusal）立即失败，不重试
*/
package grok
