// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 server 管理 jsoninfer serve 的 HTTP 服务生命周期。

Manager 在后台 goroutine 中运行 http.Server；Wait 监听 SIGINT/SIGTERM
或 ctx 取消后关闭服务。关闭时先在 ShutdownTimeout 内排空请求，超时后取消
所有请求的 context，正在重试的结构化输出获取随之中止。
*/
package server
