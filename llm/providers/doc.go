// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 提供各后端共享的传输层基础设施。具体后端子包
（openai、cohere、perplexity、grok、huggingface、ollama、anthropic、
deepseek、mistral、groq、glm、qwen）把一个 llm.Transport 与一种获取策略
（strategy.NativeFormat 或 strategy.ToolForcing）组合成 llm.Provider。

# 核心类型

  - BaseProviderConfig — 后端共享配置（BaseURL、Model、Timeout、MaxAttempts、限流、重试）
  - OpenAICompat* 系列 — OpenAI 兼容 API 的请求/响应/工具调用结构体
  - RetryableTransport — 带指数退避重试的 Transport 包装器

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - MapTransportError — 网络错误映射，ctx 取消原样返回
  - ConvertMessagesToOpenAI / ConvertToolsToOpenAI / ConvertToolChoiceToOpenAI
  - ToLLMChatResponse — OpenAI 兼容响应到 llm.ChatResponse 的转换（含 refusal 与 reasoning_content）
  - ChooseModel — 按优先级选择模型（请求 > 默认 > 兜底）
*/
package providers
