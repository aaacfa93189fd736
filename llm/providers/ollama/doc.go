// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 ollama 提供 Ollama（ollama_inference）后端的结构化输出适配实现。
传输层使用 github.com/ollama/ollama/api 客户端调用 /api/chat（非流式），
获取策略为 Tool-Forcing。

# 主机选择

  - 配置了 BaseURL 时固定使用该地址
  - 否则携带凭据的请求发往 https://ollama.com，并附加 Bearer 认证
  - 没有凭据时发往本地 http://127.0.0.1:11434

# 行为

  - 最多 3 次尝试，不发送 tool_choice
  - 请求开启 think，结果附带 _context 旁路字段
*/
package ollama
