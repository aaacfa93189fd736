// Package config 提供 jsoninfer 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → JSONINFER_* 环境变量 的顺序合并；
// providers 段按后端标识或别名配置每个后端的地址、模型、超时、
// 尝试次数与限流参数（凭据不写入配置，每次调用单独传入）。
// Watcher 轮询配置文件并在变更且校验通过后回调新配置。
package config
