// Package redis Redis Streams 消息队列实现
//
// 单条 stream（generation:executions）+ 消费组，worker 以消费者
// 身份领取生成任务并在处理完成后 Ack。操作实现在
// generation_queue.go。
package redis

import (
	"github.com/redis/go-redis/v9"

	"titlegen-admin/internal/shared/queue"
)

// Store Redis 消息队列存储
//
// 连接由 infra 统一建立并注入，本类型不持有连接所有权。
type Store struct {
	client *redis.Client
}

var _ queue.Queue = (*Store)(nil)

// NewStoreFromClient 在已建立的 Redis 连接上创建队列实例
func NewStoreFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close 实现 queue.Queue；连接由注入方关闭
func (s *Store) Close() error {
	return nil
}
