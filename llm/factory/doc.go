// Package factory 提供后端 Provider 的集中式工厂，
// 通过后端标识映射创建 Provider 实例并批量注册到 llm.Registry，
// 打破 llm 包与各 provider 子包之间的循环依赖。
package factory
