// Package queue 消息队列类型定义
package queue

import (
	"time"
)

// ============================================================================
// 消息类型
// ============================================================================

// GenerationMessage 生成任务消息
//
// 消息只携带定位信息，文章正文等大负载走数据库/对象存储，
// 避免把队列当成数据管道。
type GenerationMessage struct {
	ID          string    // Stream 消息 ID（消费时填充）
	ExecutionID string    // 执行记录 ID
	ProjectID   string    // 所属项目 ID
	SessionID   string    // 推送会话 ID（为空表示纯轮询）
	EnqueuedAt  time.Time // 入队时间
}

// ============================================================================
// Key 前缀和常量
// ============================================================================

const (
	// 生成队列 - 存放待执行的生成任务
	KeyGenerationQueue = "generation:executions"

	// 消费者组
	GenerationConsumerGroup = "generation_workers"
)
