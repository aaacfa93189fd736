// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 middleware 提供请求发送前的改写器链，用于按后端要求整形消息列表。

# 核心接口

  - RequestRewriter：请求改写器接口，包含 Rewrite 与 Name 方法。
  - RewriterChain：改写器链，执行前复制请求，按顺序执行多个 RequestRewriter。
  - Capabilities：后端能力标志，Chain() 据此组装改写器链。

# 内置改写器

  - SystemPromptFolder：所有 system 消息按换行折叠为一条前置消息。
  - RoleFilter：只保留允许的角色。
  - ConsecutiveMerger：从尾部向前合并相邻同角色消息，ToolCalls 拼接。
  - ToolChoiceGuard：工具列表为空时清除 tool_choice，指名工具不存在时回退为 required。

调用方传入的消息列表不会被修改。
*/
package middleware
