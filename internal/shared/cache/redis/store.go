// Package redis Redis 缓存实现
//
// 三组键空间：执行状态快照（exec_status:）、WebSocket 连接注册表
// （ws_conn:）、拼装结果缓存（composed_prompt:）。键前缀与 TTL
// 常量定义在 cache 包，三组键的操作分拆在同名文件中。
package redis

import (
	"github.com/redis/go-redis/v9"

	"titlegen-admin/internal/shared/cache"
)

// Store Redis 缓存存储
//
// 连接由 infra 统一建立并注入，本类型不持有连接所有权。
type Store struct {
	client *redis.Client
}

var _ cache.Cache = (*Store)(nil)

// NewStoreFromClient 在已建立的 Redis 连接上创建缓存实例
func NewStoreFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close 实现 cache.Cache；连接由注入方关闭
func (s *Store) Close() error {
	return nil
}
