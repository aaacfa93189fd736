// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 cache 管理结果缓存使用的 Redis 连接。

Manager 基于 redis.UniversalClient，按 Config 选择单机、集群或哨兵模式；
启动时校验连接，之后按 HealthCheckInterval 在后台探测并记录 Healthy 状态。
结果缓存本身位于 llm/cache，通过 Manager.Client() 获取客户端。
*/
package cache
