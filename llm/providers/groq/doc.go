// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 groq 提供 Groq 后端的结构化输出适配实现。Groq 提供
OpenAI 兼容端点（api.groq.com/openai），本包复用 openaicompat.Transport
并嵌入 Tool-Forcing 策略。

# 定制行为

  - 默认 BaseURL: https://api.groq.com/openai
  - 默认兜底模型: llama-3.3-70b-versatile
  - 最大尝试次数: 5
*/
package groq
