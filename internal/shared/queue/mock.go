// Package queue 消息队列 mock 实现
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ============================================================================
// NoOpQueue - 空操作的 Queue 实现（用于测试）
// ============================================================================

// NoOpQueue 是一个不做任何操作的 Queue 实现
type NoOpQueue struct{}

// NewNoOpQueue 创建 NoOpQueue 实例
func NewNoOpQueue() *NoOpQueue {
	return &NoOpQueue{}
}

func (q *NoOpQueue) Close() error { return nil }

func (q *NoOpQueue) EnqueueExecution(ctx context.Context, msg *GenerationMessage) (string, error) {
	return "", nil
}
func (q *NoOpQueue) CreateConsumerGroup(ctx context.Context) error { return nil }
func (q *NoOpQueue) ConsumeExecutions(ctx context.Context, consumerID string, count int64, blockTimeout time.Duration) ([]*GenerationMessage, error) {
	return nil, nil
}
func (q *NoOpQueue) AckExecution(ctx context.Context, messageID string) error { return nil }
func (q *NoOpQueue) GetQueueLength(ctx context.Context) (int64, error)        { return 0, nil }
func (q *NoOpQueue) GetPendingCount(ctx context.Context) (int64, error)       { return 0, nil }

var _ Queue = (*NoOpQueue)(nil)

// ============================================================================
// MemoryQueue - 内存版 Queue 实现（用于测试）
// ============================================================================

// MemoryQueue 进程内队列，消费后立即可见
type MemoryQueue struct {
	mu      sync.Mutex
	nextID  int
	pending []*GenerationMessage
	unacked map[string]*GenerationMessage
}

// NewMemoryQueue 创建内存队列实例
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{unacked: make(map[string]*GenerationMessage)}
}

func (q *MemoryQueue) Close() error { return nil }

func (q *MemoryQueue) EnqueueExecution(ctx context.Context, msg *GenerationMessage) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	cp := *msg
	cp.ID = fmt.Sprintf("%d-0", q.nextID)
	if cp.EnqueuedAt.IsZero() {
		cp.EnqueuedAt = time.Now()
	}
	q.pending = append(q.pending, &cp)
	return cp.ID, nil
}

func (q *MemoryQueue) CreateConsumerGroup(ctx context.Context) error { return nil }

func (q *MemoryQueue) ConsumeExecutions(ctx context.Context, consumerID string, count int64, blockTimeout time.Duration) ([]*GenerationMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	n := int(count)
	if n <= 0 || n > len(q.pending) {
		n = len(q.pending)
	}
	msgs := q.pending[:n]
	q.pending = q.pending[n:]
	for _, m := range msgs {
		q.unacked[m.ID] = m
	}
	return msgs, nil
}

func (q *MemoryQueue) AckExecution(ctx context.Context, messageID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.unacked, messageID)
	return nil
}

func (q *MemoryQueue) GetQueueLength(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.pending)), nil
}

func (q *MemoryQueue) GetPendingCount(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.unacked)), nil
}

var _ Queue = (*MemoryQueue)(nil)
