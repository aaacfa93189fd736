// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 cohere 提供 Cohere 后端的结构化输出适配实现。传输层为 openai-go SDK，
指向 Cohere 的 OpenAI compatibility API（api.cohere.ai/compatibility/v1），
获取策略为 Native-Format。

# 消息规范化

  - 所有 system 消息按换行合并为首位的单条 system 消息
  - 仅保留 system / user / assistant 角色
  - 相邻 user 消息合并；assistant 消息不合并
*/
package cohere
