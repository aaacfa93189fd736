// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 openai 提供 OpenAI（gpt5_inference）后端的结构化输出适配实现。
传输层使用官方 openai-go SDK（openaisdk.Transport），获取策略为
Native-Format：单次请求携带 json_schema response_format。

# 核心结构体

  - OpenAIProvider — 嵌入 strategy.NativeFormat

# 行为

  - 默认模型: gpt-5
  - 会话原样转发，不做角色规范化
  - 拒答立即失败；内容经 jsonrepair 修复并校验必填字段
*/
package openai
