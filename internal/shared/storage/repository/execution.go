// Package repository 执行记录相关的存储操作
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
)

// terminalStatuses 终止状态集合（SQL IN 子句用）
const terminalStatuses = `('SUCCEEDED', 'FAILED', 'TIMED_OUT', 'ABORTED')`

// CreateExecution 创建执行记录
func (s *Store) CreateExecution(ctx context.Context, exec *model.Execution) error {
	usageJSON, err := marshalNullable(exec.Usage, exec.Usage == nil)
	if err != nil {
		return err
	}
	errJSON, err := marshalNullable(exec.Error, exec.Error == nil)
	if err != nil {
		return err
	}
	query := s.rebind(`
		INSERT INTO executions (id, project_id, status, result, token_usage, error, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	_, err = s.db.ExecContext(ctx, query,
		exec.ID, exec.ProjectID, exec.Status, exec.Result, usageJSON, errJSON,
		exec.CreatedAt, exec.UpdatedAt, exec.ExpiresAt)
	return err
}

// GetExecution 获取执行记录
func (s *Store) GetExecution(ctx context.Context, id string) (*model.Execution, error) {
	query := s.rebind(`SELECT id, project_id, status, result, token_usage, error, created_at, updated_at, expires_at
			  FROM executions WHERE id = $1`)
	row := s.db.QueryRowContext(ctx, query, id)
	exec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return exec, err
}

// scanExecution 辅助函数
func scanExecution(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.Execution, error) {
	exec := &model.Execution{}
	var usageJSON, errJSON *[]byte
	err := scanner.Scan(
		&exec.ID, &exec.ProjectID, &exec.Status, &exec.Result, &usageJSON, &errJSON,
		&exec.CreatedAt, &exec.UpdatedAt, &exec.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if usageJSON != nil {
		exec.Usage = &model.Usage{}
		if err := unmarshalNullable(usageJSON, exec.Usage); err != nil {
			return nil, err
		}
	}
	if errJSON != nil {
		exec.Error = &model.ClassifiedError{}
		if err := unmarshalNullable(errJSON, exec.Error); err != nil {
			return nil, err
		}
	}
	return exec, nil
}

// ListExecutionsByProject 列出项目下的执行记录（按创建时间倒序）
func (s *Store) ListExecutionsByProject(ctx context.Context, projectID string, limit int) ([]*model.Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	query := s.rebind(`SELECT id, project_id, status, result, token_usage, error, created_at, updated_at, expires_at
			  FROM executions WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2`)
	rows, err := s.db.QueryContext(ctx, query, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var execs []*model.Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, exec)
	}
	return execs, rows.Err()
}

// MarkExecutionRunning 记录 SUBMITTED → RUNNING 迁移
//
// WHERE 子句限定当前状态为 SUBMITTED，保证重复分发同一执行时
// 只有第一个消费者成功迁移。
func (s *Store) MarkExecutionRunning(ctx context.Context, id string) error {
	query := s.rebind(`UPDATE executions SET status = $1, updated_at = $2
			  WHERE id = $3 AND status = $4`)
	result, err := s.db.ExecContext(ctx, query,
		model.ExecutionStatusRunning, time.Now(), id, model.ExecutionStatusSubmitted)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// 区分记录不存在和状态冲突
		current, err := s.GetExecution(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == model.ExecutionStatusRunning {
			return nil
		}
		return storage.ErrConflict
	}
	return nil
}

// FinalizeExecution 原子写入终止状态及结果/错误负载
//
// 终止状态一经写入即不可变：UPDATE 只命中非终止状态的行，
// 零行命中时回查当前状态：相同终止状态的重写视为幂等，
// 不同终止状态返回 ErrConflict。
func (s *Store) FinalizeExecution(ctx context.Context, id string, status model.ExecutionStatus,
	result *string, usage *model.Usage, cerr *model.ClassifiedError) error {
	usageJSON, err := marshalNullable(usage, usage == nil)
	if err != nil {
		return err
	}
	errJSON, err := marshalNullable(cerr, cerr == nil)
	if err != nil {
		return err
	}

	query := s.rebind(`UPDATE executions
			  SET status = $1, result = $2, token_usage = $3, error = $4, updated_at = $5
			  WHERE id = $6 AND status NOT IN ` + terminalStatuses)
	res, err := s.db.ExecContext(ctx, query, status, result, usageJSON, errJSON, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	current, err := s.GetExecution(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == status {
		return nil
	}
	return storage.ErrConflict
}

// DeleteExpiredExecutions 清理超过保留窗口的记录，返回删除条数
func (s *Store) DeleteExpiredExecutions(ctx context.Context, now time.Time) (int64, error) {
	query := s.rebind(`DELETE FROM executions WHERE expires_at IS NOT NULL AND expires_at < $1`)
	result, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
