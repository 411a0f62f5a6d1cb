// Package redis ExecutionState 缓存操作
package redis

import (
	"context"
	"strconv"

	"titlegen-admin/internal/shared/cache"
)

// SetExecutionStatus 写入执行状态快照
func (s *Store) SetExecutionStatus(ctx context.Context, executionID string, state *cache.ExecutionState) error {
	key := cache.KeyExecutionStatus + executionID

	data := map[string]interface{}{
		"status":   state.Status,
		"progress": state.Progress,
		"step":     state.Step,
		"error":    state.Error,
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, cache.TTLExecutionStatus)
	_, err := pipe.Exec(ctx)

	return err
}

// GetExecutionStatus 获取执行状态快照
//
// 缓存缺失返回 (nil, nil)，调用方回落到数据库。
func (s *Store) GetExecutionStatus(ctx context.Context, executionID string) (*cache.ExecutionState, error) {
	key := cache.KeyExecutionStatus + executionID

	result, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, nil
	}

	state := &cache.ExecutionState{
		Status: result["status"],
		Step:   result["step"],
		Error:  result["error"],
	}

	if progress, err := strconv.Atoi(result["progress"]); err == nil {
		state.Progress = progress
	}

	return state, nil
}

// DeleteExecutionStatus 删除执行状态快照
func (s *Store) DeleteExecutionStatus(ctx context.Context, executionID string) error {
	key := cache.KeyExecutionStatus + executionID
	return s.client.Del(ctx, key).Err()
}
