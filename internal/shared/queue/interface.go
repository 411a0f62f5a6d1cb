// Package queue 消息队列抽象接口
//
// 提供生成任务分发和消费的队列能力，当前由 Redis Streams 实现。
package queue

import (
	"context"
	"time"
)

// ============================================================================
// 队列接口定义
// ============================================================================

// GenerationQueue 生成任务队列接口
//
// API 层将已落库的执行记录入队，worker 通过消费者组领取并执行。
// 消息处理完成后必须 Ack，未 Ack 的消息可被重新投递。
type GenerationQueue interface {
	// EnqueueExecution 将执行记录加入生成队列
	EnqueueExecution(ctx context.Context, msg *GenerationMessage) (string, error)
	CreateConsumerGroup(ctx context.Context) error
	ConsumeExecutions(ctx context.Context, consumerID string, count int64, blockTimeout time.Duration) ([]*GenerationMessage, error)
	AckExecution(ctx context.Context, messageID string) error
	GetQueueLength(ctx context.Context) (int64, error)
	GetPendingCount(ctx context.Context) (int64, error)
}

// ============================================================================
// 组合接口
// ============================================================================

// Queue 消息队列组合接口
type Queue interface {
	GenerationQueue
	Close() error
}
