// Package tracker 执行记录状态机
//
// Tracker 封装 Execution 的生命周期写入：
//
//	SUBMITTED → RUNNING → {SUCCEEDED, FAILED, TIMED_OUT, ABORTED}
//
// 终止状态的不可变性由存储层保证（冲突返回 storage.ErrConflict），
// Tracker 负责把写入策略落实到调用方语义上：
//   - 成功写入与结果/用量原子，一并失败一并成功
//   - 失败写入永不向上抛错（持久化失败只记日志，原始错误照常上抛）
//   - 状态缓存同步更新（尽力而为，缓存失败不影响落库）
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"titlegen-admin/internal/shared/cache"
	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
	"titlegen-admin/pkg/logging"
)

// Tracker 执行记录追踪器
type Tracker struct {
	store     storage.ExecutionStore
	cache     cache.ExecutionStatusCache
	retention time.Duration
	logger    *logging.Logger
}

// New 创建追踪器；cache 可为 nil（仅落库）
func New(store storage.ExecutionStore, statusCache cache.ExecutionStatusCache, retention time.Duration) *Tracker {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Tracker{
		store:     store,
		cache:     statusCache,
		retention: retention,
		logger:    logging.Default("tracker"),
	}
}

// Submit 创建 SUBMITTED 状态的执行记录
func (t *Tracker) Submit(ctx context.Context, executionID, projectID string) (*model.Execution, error) {
	now := time.Now().UTC()
	exec := &model.Execution{
		ID:        executionID,
		ProjectID: projectID,
		Status:    model.ExecutionStatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(t.retention),
	}
	if err := t.store.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}
	t.cacheStatus(ctx, executionID, string(model.ExecutionStatusSubmitted), 0, "submitted", "")
	return exec, nil
}

// MarkRunning 记录 SUBMITTED → RUNNING 迁移
func (t *Tracker) MarkRunning(ctx context.Context, executionID string) error {
	if err := t.store.MarkExecutionRunning(ctx, executionID); err != nil {
		return fmt.Errorf("failed to mark execution running: %w", err)
	}
	t.cacheStatus(ctx, executionID, string(model.ExecutionStatusRunning), 10, "model_invocation", "")
	return nil
}

// MarkSucceeded 原子写入成功终态、结果与用量
//
// 重复的成功写入是幂等的（存储层对相同终态的重写直接放行）。
func (t *Tracker) MarkSucceeded(ctx context.Context, executionID, result string, usage model.Usage) error {
	err := t.store.FinalizeExecution(ctx, executionID,
		model.ExecutionStatusSucceeded, &result, &usage, nil)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			t.logger.Warn("conflicting terminal write rejected",
				"execution_id", executionID, "attempted", model.ExecutionStatusSucceeded)
		}
		return fmt.Errorf("failed to finalize execution: %w", err)
	}
	t.cacheStatus(ctx, executionID, string(model.ExecutionStatusSucceeded), 100, "complete", "")
	return nil
}

// MarkFailed 写入失败终态与分类错误
//
// 永不返回错误：落库失败视为 logged-but-non-fatal，
// 调用方继续上抛引发失败的原始错误。
func (t *Tracker) MarkFailed(ctx context.Context, executionID string, cerr *model.ClassifiedError) {
	err := t.store.FinalizeExecution(ctx, executionID,
		model.ExecutionStatusFailed, nil, nil, cerr)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			t.logger.Warn("conflicting terminal write rejected",
				"execution_id", executionID, "attempted", model.ExecutionStatusFailed)
		} else {
			t.logger.WithError(err).Error("failed to record execution failure",
				"execution_id", executionID)
		}
		return
	}
	msg := ""
	if cerr != nil {
		msg = cerr.Message
	}
	t.cacheStatus(ctx, executionID, string(model.ExecutionStatusFailed), 100, "failed", msg)
}

// MarkTimedOut 写入超时终态（外部编排层驱动，无结果）
func (t *Tracker) MarkTimedOut(ctx context.Context, executionID string) error {
	return t.finalizeExternal(ctx, executionID, model.ExecutionStatusTimedOut, &model.ClassifiedError{
		Type:     model.ErrTypeTimeout,
		Severity: model.SeverityHigh,
		Message:  "execution timed out",
	})
}

// MarkAborted 写入取消终态（外部显式取消，无结果）
func (t *Tracker) MarkAborted(ctx context.Context, executionID string) error {
	return t.finalizeExternal(ctx, executionID, model.ExecutionStatusAborted, nil)
}

func (t *Tracker) finalizeExternal(ctx context.Context, executionID string, status model.ExecutionStatus, cerr *model.ClassifiedError) error {
	err := t.store.FinalizeExecution(ctx, executionID, status, nil, nil, cerr)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// 已有不同终态：外部信号不得破坏既有终态，记录异常即可
			t.logger.Warn("external terminal signal conflicts with recorded state",
				"execution_id", executionID, "attempted", status)
		}
		return fmt.Errorf("failed to finalize execution: %w", err)
	}
	t.cacheStatus(ctx, executionID, string(status), 100, "finished", "")
	return nil
}

// Get 按 ID 查询执行记录
//
// 缓存命中时直接返回轻量状态视图；记录不存在返回 storage.ErrNotFound，
// 调用方回退到队列/编排层状态。
func (t *Tracker) Get(ctx context.Context, executionID string) (*model.Execution, error) {
	exec, err := t.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	return exec, nil
}

// GetCachedState 查询缓存中的执行状态（未命中返回 nil, nil）
func (t *Tracker) GetCachedState(ctx context.Context, executionID string) (*cache.ExecutionState, error) {
	if t.cache == nil {
		return nil, nil
	}
	return t.cache.GetExecutionStatus(ctx, executionID)
}

// Cleanup 删除超过保留窗口的执行记录，返回删除条数
func (t *Tracker) Cleanup(ctx context.Context) (int64, error) {
	return t.store.DeleteExpiredExecutions(ctx, time.Now().UTC())
}

// cacheStatus 同步状态缓存（尽力而为）
func (t *Tracker) cacheStatus(ctx context.Context, executionID, status string, progress int, step, errMsg string) {
	if t.cache == nil {
		return
	}
	state := &cache.ExecutionState{
		Status:   status,
		Progress: progress,
		Step:     step,
		Error:    errMsg,
	}
	if err := t.cache.SetExecutionStatus(ctx, executionID, state); err != nil {
		t.logger.WithError(err).Warn("failed to update status cache", "execution_id", executionID)
	}
}
