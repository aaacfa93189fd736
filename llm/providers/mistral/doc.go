// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 mistral 提供 Mistral AI 后端的结构化输出适配实现。Mistral 使用
OpenAI 兼容的 API 格式，本包通过 openaicompat.Transport 发送请求，
并嵌入 Tool-Forcing 策略强制调用 provide_answer 工具。

# 核心结构体

  - MistralProvider — 嵌入 strategy.ToolForcing

# 定制行为

  - 默认 BaseURL: https://api.mistral.ai
  - 默认兜底模型: mistral-large-latest
  - Endpoint: /v1/chat/completions
  - 最大尝试次数: 5（可由 max_attempts 覆盖）
*/
package mistral
