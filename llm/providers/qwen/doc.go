// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 qwen 提供阿里巴巴通义千问（Qwen）后端的结构化输出适配实现，
基于 OpenAI 兼容协议接入 DashScope API，注册标识为 alibaba。

# 概述

Qwen Provider 复用 openaicompat 基础设施，通过 DashScope 的
compatible-mode 端点发送请求，并嵌入 Tool-Forcing 策略。默认模型为
qwen3-235b-a22b。

# 核心接口

  - QwenProvider — 嵌入 strategy.ToolForcing。
  - NewQwenProvider — 构造函数，默认 BaseURL https://dashscope.aliyuncs.com。
*/
package qwen
