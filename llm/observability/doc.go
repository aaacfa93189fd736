// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 observability 为结构化输出获取提供基于 OpenTelemetry 的追踪与指标。

# 概述

Instrumentation 以 llm.ProviderMiddleware 的形式装饰后端实例：每次
OutlineCompletion 生成一个 client span，并同步记录请求计数、耗时、
错误计数、结果大小与进行中请求数。span 与指标的导出由全局或注入的
TracerProvider/MeterProvider 决定（见 internal/telemetry）。

# Span 属性

  - jsoninference.backend / jsoninference.model（未指定模型记为 default）
  - jsoninference.schema.name / jsoninference.messages
  - 失败时：jsoninference.error.code，状态置为 Error 并记录异常事件
  - 成功时：jsoninference.result.size

# 用法

	inst, err := observability.NewInstrumentation(otel.GetTracerProvider(), otel.GetMeterProvider(), logger)
	if err != nil {
		return err
	}
	reg := llm.NewRegistry(llm.WithMiddleware(inst.Middleware()))
*/
package observability
