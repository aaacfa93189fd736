// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 huggingface 提供 Hugging Face 路由（router.huggingface.co）后端的
结构化输出适配实现，复用 openaicompat.Transport 并嵌入 Tool-Forcing 策略。

# 定制行为

  - 默认 BaseURL: https://router.huggingface.co，Endpoint /v1/chat/completions
  - 最大尝试次数: 5
  - 会话不做角色规范化，仅在首位注入工具指令
  - 成功结果附加 _thinking（响应中的 reasoning_content）与 _context（backend、model）
*/
package huggingface
