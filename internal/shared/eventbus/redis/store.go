// Package redis Redis Streams 事件总线实现
//
// 每个会话一条 stream（generation_events:<session_id>），XAdd 近似
// MaxLen 截断，订阅端 XRead 阻塞拉取。操作实现在
// generation_events.go。
package redis

import (
	"github.com/redis/go-redis/v9"

	"titlegen-admin/internal/shared/eventbus"
)

// Store Redis 事件总线存储
//
// 连接由 infra 统一建立并注入，本类型不持有连接所有权。
type Store struct {
	client *redis.Client
}

var _ eventbus.EventBus = (*Store)(nil)

// NewStoreFromClient 在已建立的 Redis 连接上创建事件总线实例
func NewStoreFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close 实现 eventbus.EventBus；连接由注入方关闭
func (s *Store) Close() error {
	return nil
}
