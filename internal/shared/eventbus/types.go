// Package eventbus 事件总线类型定义
package eventbus

import (
	"time"
)

// ============================================================================
// 事件类型
// ============================================================================

// 生成事件类型常量
const (
	// EventProgress 进度事件（percent 字段 10~100）
	EventProgress = "progress"

	// EventStreamChunk 流式文本分片
	EventStreamChunk = "stream_chunk"

	// EventStreamComplete 流式完成（每次生成恰好一条）
	EventStreamComplete = "stream_complete"

	// EventError 错误事件（携带分类后的错误）
	EventError = "error"
)

// GenerationEvent 生成事件
//
// Seq 由发布方单调递增，消费侧按 Seq 保序分发。
type GenerationEvent struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	Seq       int                    `json:"seq"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// ============================================================================
// Key 前缀和常量
// ============================================================================

const (
	// Key 前缀
	KeyGenerationEvents = "generation_events:"

	// Stream 最大长度
	MaxStreamLength = 1000
)
