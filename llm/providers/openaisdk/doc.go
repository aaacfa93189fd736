// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 openaisdk 提供基于官方 github.com/openai/openai-go SDK 的 llm.Transport。
OpenAI（gpt5）、Cohere（compatibility API）与 Perplexity 三个 Native-Format
后端共用该传输层，仅 BaseURL 与默认模型不同。

# 行为

  - response_format 信封映射为 SDK 的 json_schema 参数，名称缺省为 provide_answer
  - max_tokens 映射为 max_completion_tokens
  - SDK 内置重试关闭（WithMaxRetries(0)），重试由 providers.RetryableTransport 负责
  - API Key 逐请求从 llm.CredentialFromContext 读取
  - *openai.Error 按状态码映射为 llm.Error
*/
package openaisdk
