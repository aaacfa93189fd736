// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 perplexity 提供 Perplexity 后端的结构化输出适配实现。传输层为
openai-go SDK（api.perplexity.ai），获取策略为 Native-Format。

# 消息规范化

  - system 消息折叠为首位单条
  - 仅保留 system / user / assistant 角色
  - 相邻 assistant 合并（tool_calls 拼接），相邻 user 合并
*/
package perplexity
