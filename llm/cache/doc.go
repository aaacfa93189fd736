// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 cache 提供结构化输出结果的多级缓存，通过本地 LRU 与 Redis 协同
避免对相同 (backend, model, schema, messages) 的重复获取。

# 核心接口

  - KeyStrategy：缓存键生成策略，支持 Hash 与 Hierarchical 两种实现。
  - MultiLevelCache：本地 LRU 作为 L1、Redis 作为 L2，Redis 命中自动回填。
  - Middleware：llm.ProviderMiddleware，在 Registry 构造实例时装配。

# 主要能力

  - 凭据不参与缓存键，也不写入缓存条目。
  - 裸 schema 与 response_format 信封生成相同的键。
  - 分层键（backend:model:hash）支持按后端整体失效。
  - 只缓存成功结果；缓存故障降级为直接调用。

# 使用方式

	mlc := cache.NewMultiLevelCache(redisClient, cache.DefaultConfig(), logger)
	reg := llm.NewRegistry(llm.WithMiddleware(cache.Middleware(mlc, logger, collector)))
*/
package cache
