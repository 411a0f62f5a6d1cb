package mongostore

import (
	"context"
	"time"

	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// ExecutionStore
// ============================================================================

// terminalStatusList 终止状态集合（$nin 过滤用）
var terminalStatusList = bson.A{
	model.ExecutionStatusSucceeded,
	model.ExecutionStatusFailed,
	model.ExecutionStatusTimedOut,
	model.ExecutionStatusAborted,
}

func (s *Store) CreateExecution(ctx context.Context, exec *model.Execution) error {
	return insertOne(ctx, s.col(ColExecutions), exec)
}

func (s *Store) GetExecution(ctx context.Context, id string) (*model.Execution, error) {
	return findOne[model.Execution](ctx, s.col(ColExecutions), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListExecutionsByProject(ctx context.Context, projectID string, limit int) ([]*model.Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	filter := bson.D{{Key: "project_id", Value: projectID}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return findMany[model.Execution](ctx, s.col(ColExecutions), filter, opts)
}

func (s *Store) MarkExecutionRunning(ctx context.Context, id string) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: model.ExecutionStatusSubmitted},
	}
	update := bson.D{
		{Key: "status", Value: model.ExecutionStatusRunning},
		{Key: "updated_at", Value: time.Now()},
	}
	err := updateFields(ctx, s.col(ColExecutions), filter, update)
	if err != storage.ErrNotFound {
		return err
	}

	// 零命中：区分记录不存在和状态冲突
	current, gerr := s.GetExecution(ctx, id)
	if gerr != nil {
		return gerr
	}
	if current.Status == model.ExecutionStatusRunning {
		return nil
	}
	return storage.ErrConflict
}

// FinalizeExecution 原子写入终止状态及结果/错误负载
//
// 过滤器排除已终止的记录，零命中时回查当前状态：
// 相同终止状态的重写视为幂等，不同终止状态返回 ErrConflict。
func (s *Store) FinalizeExecution(ctx context.Context, id string, status model.ExecutionStatus,
	result *string, usage *model.Usage, cerr *model.ClassifiedError) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: bson.D{{Key: "$nin", Value: terminalStatusList}}},
	}
	update := bson.D{
		{Key: "status", Value: status},
		{Key: "result", Value: result},
		{Key: "usage", Value: usage},
		{Key: "error", Value: cerr},
		{Key: "updated_at", Value: time.Now()},
	}
	err := updateFields(ctx, s.col(ColExecutions), filter, update)
	if err != storage.ErrNotFound {
		return err
	}

	current, gerr := s.GetExecution(ctx, id)
	if gerr != nil {
		return gerr
	}
	if current.Status == status {
		return nil
	}
	return storage.ErrConflict
}

func (s *Store) DeleteExpiredExecutions(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lt", Value: now}}}}
	res, err := s.col(ColExecutions).DeleteMany(ctx, filter)
	if err != nil {
		return 0, wrapError(err)
	}
	return res.DeletedCount, nil
}
