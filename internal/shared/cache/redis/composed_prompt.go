// Package redis 拼装结果缓存操作
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"titlegen-admin/internal/shared/cache"
)

// SetComposedPrompt 缓存项目拼装后的系统提示词
func (s *Store) SetComposedPrompt(ctx context.Context, projectID, prompt string) error {
	key := cache.KeyComposedPrompt + projectID
	return s.client.Set(ctx, key, prompt, cache.TTLComposedPrompt).Err()
}

// GetComposedPrompt 读取缓存的系统提示词
//
// 缓存缺失返回 ("", nil)，调用方重新拼装。
func (s *Store) GetComposedPrompt(ctx context.Context, projectID string) (string, error) {
	key := cache.KeyComposedPrompt + projectID
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// InvalidateComposedPrompt 失效缓存（提示卡变更时调用）
func (s *Store) InvalidateComposedPrompt(ctx context.Context, projectID string) error {
	key := cache.KeyComposedPrompt + projectID
	return s.client.Del(ctx, key).Err()
}
