// Package cache 缓存层 mock 实现
package cache

import (
	"context"
)

// ============================================================================
// NoOpCache - 空操作的 Cache 实现（用于测试）
// ============================================================================

// NoOpCache 是一个不做任何操作的 Cache 实现
type NoOpCache struct{}

// NewNoOpCache 创建 NoOpCache 实例
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Close 关闭缓存
func (c *NoOpCache) Close() error {
	return nil
}

// ExecutionStatusCache 方法

func (c *NoOpCache) SetExecutionStatus(ctx context.Context, executionID string, state *ExecutionState) error {
	return nil
}
func (c *NoOpCache) GetExecutionStatus(ctx context.Context, executionID string) (*ExecutionState, error) {
	return nil, nil
}
func (c *NoOpCache) DeleteExecutionStatus(ctx context.Context, executionID string) error {
	return nil
}

// ConnectionRegistry 方法

func (c *NoOpCache) RegisterConnection(ctx context.Context, conn *ConnectionEntry) error {
	return nil
}
func (c *NoOpCache) GetConnection(ctx context.Context, sessionID string) (*ConnectionEntry, error) {
	return nil, nil
}
func (c *NoOpCache) TouchConnection(ctx context.Context, sessionID string) error {
	return nil
}
func (c *NoOpCache) UnregisterConnection(ctx context.Context, sessionID string) error {
	return nil
}

// PromptCache 方法

func (c *NoOpCache) SetComposedPrompt(ctx context.Context, projectID, prompt string) error {
	return nil
}
func (c *NoOpCache) GetComposedPrompt(ctx context.Context, projectID string) (string, error) {
	return "", nil
}
func (c *NoOpCache) InvalidateComposedPrompt(ctx context.Context, projectID string) error {
	return nil
}

var _ Cache = (*NoOpCache)(nil)
