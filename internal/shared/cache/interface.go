// Package cache 缓存层抽象接口
//
// 提供临时状态和缓存的存取能力，当前由 Redis 实现。
package cache

import (
	"context"
)

// ============================================================================
// 缓存接口定义
// ============================================================================

// ExecutionStatusCache 执行状态缓存接口
//
// 轮询接口的快速路径：执行状态变更时写入缓存，
// GET /executions/{id} 先查缓存再落库。缓存缺失不是错误。
type ExecutionStatusCache interface {
	SetExecutionStatus(ctx context.Context, executionID string, state *ExecutionState) error
	GetExecutionStatus(ctx context.Context, executionID string) (*ExecutionState, error)
	DeleteExecutionStatus(ctx context.Context, executionID string) error
}

// ConnectionRegistry WebSocket 连接注册表接口
//
// 记录活跃推送会话的归属，供多实例部署时路由事件。
type ConnectionRegistry interface {
	RegisterConnection(ctx context.Context, conn *ConnectionEntry) error
	GetConnection(ctx context.Context, sessionID string) (*ConnectionEntry, error)
	TouchConnection(ctx context.Context, sessionID string) error
	UnregisterConnection(ctx context.Context, sessionID string) error
}

// PromptCache 拼装结果缓存接口
//
// 缓存项目拼装后的系统提示词，提示卡变更时由管理接口失效。
type PromptCache interface {
	SetComposedPrompt(ctx context.Context, projectID, prompt string) error
	GetComposedPrompt(ctx context.Context, projectID string) (string, error)
	InvalidateComposedPrompt(ctx context.Context, projectID string) error
}

// ============================================================================
// 组合接口
// ============================================================================

// Cache 缓存组合接口
type Cache interface {
	ExecutionStatusCache
	ConnectionRegistry
	PromptCache
	Close() error
}
