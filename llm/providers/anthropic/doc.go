// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 claude 提供 Anthropic Claude（claude_inference）后端的结构化输出适配实现。
Claude API 与 OpenAI 格式有显著差异，本包通过 anthropic-sdk-go 将统一请求
映射到 Anthropic Messages API（/v1/messages），获取策略为 Tool-Forcing。

# 核心结构体

  - Transport — llm.Transport 实现，负责协议转换
  - ClaudeProvider — 嵌入 strategy.ToolForcing

# 协议差异

  - 认证使用 x-api-key 请求头（由 SDK 处理，逐请求从 ctx 读取）
  - system 消息从 messages 数组中提取，单独传递到 system 字段
  - 工具参数以已解析的 input 对象返回
  - stop_reason 为 refusal 时视为拒答
  - 强制工具使用 tool_choice {type: tool, name: provide_answer}
*/
package claude
