// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 glm 提供智谱 AI GLM-4 后端的结构化输出适配实现。该包基于
openaicompat 兼容层封装，对接智谱开放平台 API（open.bigmodel.cn）。

# 核心结构体

  - GLMProvider — 嵌入 strategy.ToolForcing，配置智谱专属
    BaseURL（open.bigmodel.cn）与 EndpointPath（/api/paas/v4/chat/completions）

# 构造函数

  - NewGLMProvider(cfg, logger, opts...) — 创建实例，默认模型 glm-4-plus
*/
package glm
