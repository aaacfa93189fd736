/*
Package strategy 实现两种结构化输出获取策略，均满足 llm.Provider。

  - NativeFormat：单次请求，依赖服务端的 response_format 约束；拒答立即失败。
  - ToolForcing：注入 system 指令并强制调用 provide_answer 工具，
    逐次评估回复，最多 MaxAttempts 次；未按要求作答时追加一次纠正消息。

两者都把模型输出交给 structured.RepairAndValidate。
*/
package strategy
