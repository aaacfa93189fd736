// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供结构化输出获取子系统的核心模型：后端标识、执行上下文、
Provider 契约与 Registry。

# 概述

调用方按后端标识（[InferenceName]）请求一个符合 schema 的 JSON 对象，
无需了解各后端的原生能力：

	reg := llm.NewRegistry(llm.WithLogger(logger))
	factory.RegisterBuiltins(reg, cfg.Providers)
	res, err := reg.Dispatch(ctx, llm.InferenceGPT5, params, "gpt-5", apiKey)

# 核心接口

  - [Provider]：后端下行契约，仅有 OutlineCompletion 一个入口
  - [Transport]：一次请求/响应往返（HTTP 或 SDK）
  - [Registry]：标识到实例的映射，实例按标识惰性构造并缓存

# 执行上下文

[Execution] 按值传递，每次调用独立构造；凭据通过 [WithCredential]
写入 ctx 传给传输层，日志与 JSON 输出中始终脱敏。

# 错误

所有跨包错误均为 [*Error]，使用 [IsCode] 判断错误码，例如
[ErrRefusal]、[ErrAttemptsExhausted]、[ErrUnknownBackend]。
*/
package llm
