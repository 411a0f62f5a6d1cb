// Package redis GenerationQueue 操作
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"titlegen-admin/internal/shared/queue"
)

// EnqueueExecution 将执行记录加入生成队列
func (s *Store) EnqueueExecution(ctx context.Context, msg *queue.GenerationMessage) (string, error) {
	enqueuedAt := msg.EnqueuedAt
	if enqueuedAt.IsZero() {
		enqueuedAt = time.Now()
	}

	args := &redis.XAddArgs{
		Stream: queue.KeyGenerationQueue,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]interface{}{
			"execution_id": msg.ExecutionID,
			"project_id":   msg.ProjectID,
			"session_id":   msg.SessionID,
			"enqueued_at":  enqueuedAt.Format(time.RFC3339Nano),
		},
	}

	msgID, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue execution %s: %w", msg.ExecutionID, err)
	}

	log.Printf("[Redis/Queue] Enqueued execution: exec=%s project=%s msg_id=%s", msg.ExecutionID, msg.ProjectID, msgID)
	return msgID, nil
}

// CreateConsumerGroup 创建 worker 消费者组
func (s *Store) CreateConsumerGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, queue.KeyGenerationQueue, queue.GenerationConsumerGroup, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Printf("[Redis/Queue] Created consumer group: %s", queue.GenerationConsumerGroup)
	return nil
}

// ConsumeExecutions 消费待执行的生成任务
func (s *Store) ConsumeExecutions(ctx context.Context, consumerID string, count int64, blockTimeout time.Duration) ([]*queue.GenerationMessage, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    queue.GenerationConsumerGroup,
		Consumer: consumerID,
		Streams:  []string{queue.KeyGenerationQueue, ">"},
		Count:    count,
		Block:    blockTimeout,
	}).Result()

	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to consume executions: %w", err)
	}

	var messages []*queue.GenerationMessage
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			m := &queue.GenerationMessage{
				ID: msg.ID,
			}
			if execID, ok := msg.Values["execution_id"].(string); ok {
				m.ExecutionID = execID
			}
			if projectID, ok := msg.Values["project_id"].(string); ok {
				m.ProjectID = projectID
			}
			if sessionID, ok := msg.Values["session_id"].(string); ok {
				m.SessionID = sessionID
			}
			if enqueuedAt, ok := msg.Values["enqueued_at"].(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, enqueuedAt); err == nil {
					m.EnqueuedAt = t
				}
			}
			messages = append(messages, m)
		}
	}

	if len(messages) > 0 {
		log.Printf("[Redis/Queue] Consumed %d executions by consumer: %s", len(messages), consumerID)
	}

	return messages, nil
}

// AckExecution 确认生成任务消息已处理
func (s *Store) AckExecution(ctx context.Context, messageID string) error {
	return s.client.XAck(ctx, queue.KeyGenerationQueue, queue.GenerationConsumerGroup, messageID).Err()
}

// GetQueueLength 获取生成队列长度
func (s *Store) GetQueueLength(ctx context.Context) (int64, error) {
	return s.client.XLen(ctx, queue.KeyGenerationQueue).Result()
}

// GetPendingCount 获取未确认消息数量
func (s *Store) GetPendingCount(ctx context.Context) (int64, error) {
	pending, err := s.client.XPending(ctx, queue.KeyGenerationQueue, queue.GenerationConsumerGroup).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return pending.Count, nil
}
