// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 deepseek 提供 DeepSeek 后端的结构化输出适配实现。DeepSeek 使用
OpenAI 兼容的 API 格式，因此本包通过 openaicompat.Transport 复用
HTTP 处理、消息转换、错误映射等通用逻辑，并嵌入 Tool-Forcing 策略。

# 核心结构体

  - DeepSeekProvider — 嵌入 strategy.ToolForcing

# 定制行为

  - 默认 BaseURL: https://api.deepseek.com
  - 默认兜底模型: deepseek-chat
  - Endpoint: /chat/completions
  - 最大尝试次数: 5
  - 消息规范化: 折叠 system，合并相邻 user
*/
package deepseek
