// Package redis WebSocket 连接注册表操作
package redis

import (
	"context"
	"time"

	"titlegen-admin/internal/shared/cache"
)

// RegisterConnection 注册推送连接
func (s *Store) RegisterConnection(ctx context.Context, conn *cache.ConnectionEntry) error {
	key := cache.KeyConnection + conn.SessionID

	data := map[string]interface{}{
		"session_id": conn.SessionID,
		"project_id": conn.ProjectID,
		"instance":   conn.Instance,
		"created_at": conn.CreatedAt.Format(time.RFC3339),
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, cache.TTLConnection)
	_, err := pipe.Exec(ctx)

	return err
}

// GetConnection 查询推送连接归属
func (s *Store) GetConnection(ctx context.Context, sessionID string) (*cache.ConnectionEntry, error) {
	key := cache.KeyConnection + sessionID

	result, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	conn := &cache.ConnectionEntry{
		SessionID: result["session_id"],
		ProjectID: result["project_id"],
		Instance:  result["instance"],
	}
	if t, err := time.Parse(time.RFC3339, result["created_at"]); err == nil {
		conn.CreatedAt = t
	}

	return conn, nil
}

// TouchConnection 续期连接 TTL（心跳时调用）
func (s *Store) TouchConnection(ctx context.Context, sessionID string) error {
	key := cache.KeyConnection + sessionID
	return s.client.Expire(ctx, key, cache.TTLConnection).Err()
}

// UnregisterConnection 注销推送连接
func (s *Store) UnregisterConnection(ctx context.Context, sessionID string) error {
	key := cache.KeyConnection + sessionID
	return s.client.Del(ctx, key).Err()
}
