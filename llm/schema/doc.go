// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package schema 统一结构化输出的 schema 形态。

调用方可以传入裸 JSON Schema（Format），也可以传入已包装的
response_format 信封（ResponseFormat）。下游统一使用裸 schema：

	f := schema.Bare(src)      // 解包
	rf := schema.Envelope(src) // 需要信封的后端
	tool := schema.AnswerTool(f)

AnswerTool 为工具强制型后端合成名为 provide_answer 的工具。

解码得到的 schema 保留原文，编码时原样输出；Type、Required 等字段只是解析视图。
*/
package schema
