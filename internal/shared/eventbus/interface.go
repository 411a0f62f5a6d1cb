// Package eventbus 事件总线抽象接口
//
// 提供生成事件的发布/订阅能力，当前由 Redis Streams 实现。
package eventbus

import (
	"context"
)

// ============================================================================
// 事件总线接口定义
// ============================================================================

// GenerationEventBus 生成事件总线接口
//
// 每个推送会话一条事件流：worker 发布进度/流式分片/完成/错误事件，
// API 实例订阅后经 WebSocket 分发给客户端。
type GenerationEventBus interface {
	PublishGenerationEvent(ctx context.Context, sessionID string, event *GenerationEvent) error
	GetGenerationEvents(ctx context.Context, sessionID string, fromID string, count int64) ([]*GenerationEvent, error)
	GetGenerationEventCount(ctx context.Context, sessionID string) (int64, error)
	SubscribeGenerationEvents(ctx context.Context, sessionID string) (<-chan *GenerationEvent, error)
	DeleteGenerationEvents(ctx context.Context, sessionID string) error
}

// ============================================================================
// 组合接口
// ============================================================================

// EventBus 事件总线组合接口
type EventBus interface {
	GenerationEventBus
	Close() error
}
