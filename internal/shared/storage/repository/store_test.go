// Package repository SQLite 集成测试
//
// 使用 SQLite 内存数据库验证 repository 层所有存储接口的正确性。
// 无需外部数据库依赖，可在任何环境下运行。
package repository

import (
	"context"
	"testing"
	"time"

	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
	"titlegen-admin/internal/shared/storage/dbutil"
	sqlitedriver "titlegen-admin/internal/shared/storage/driver/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore 创建用于测试的 SQLite 内存数据库 Store
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlitedriver.Open(":memory:")
	require.NoError(t, err)
	dialect := sqlitedriver.NewDialect()
	require.NoError(t, dialect.AutoMigrate(db))
	store := NewStore(db, dialect)
	t.Cleanup(func() { store.Close() })
	return store
}

// ============================================================================
// Dialect 基础测试
// ============================================================================

func TestDialectTypes(t *testing.T) {
	d := sqlitedriver.NewDialect()
	assert.Equal(t, dbutil.DriverSQLite, d.DriverType())
	assert.Equal(t, "datetime('now')", d.CurrentTimestamp())
	assert.Equal(t, "1", d.BooleanLiteral(true))
	assert.Equal(t, "0", d.BooleanLiteral(false))
}

func TestRebind(t *testing.T) {
	d := sqlitedriver.NewDialect()
	assert.Equal(t, "SELECT * FROM t WHERE id = ? AND name = ?",
		d.Rebind("SELECT * FROM t WHERE id = $1 AND name = $2"))
	// 应去除 PG 类型转换
	assert.Equal(t, "UPDATE t SET status = ? WHERE id = ?",
		d.Rebind("UPDATE t SET status = $1::varchar WHERE id = $2"))
}

// ============================================================================
// Project 测试
// ============================================================================

func TestProjectCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	project := &model.Project{
		ID:        "proj-001",
		TenantID:  "tenant-a",
		Name:      "科技周报",
		ModelID:   "claude-sonnet-4",
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Create
	require.NoError(t, s.CreateProject(ctx, project))

	// Get
	got, err := s.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.Name, got.Name)
	assert.Equal(t, project.TenantID, got.TenantID)

	// Get 不存在的项目
	_, err = s.GetProject(ctx, "proj-missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// List 按租户过滤
	projects, err := s.ListProjects(ctx, "tenant-a", 10, 0)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	projects, err = s.ListProjects(ctx, "tenant-b", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, projects)

	// Update
	project.Name = "财经周报"
	require.NoError(t, s.UpdateProject(ctx, project))
	got, err = s.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "财经周报", got.Name)

	// Delete
	require.NoError(t, s.DeleteProject(ctx, project.ID))
	_, err = s.GetProject(ctx, project.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// ============================================================================
// PromptCard 测试
// ============================================================================

func TestPromptCardOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	require.NoError(t, s.CreateProject(ctx, &model.Project{
		ID: "proj-001", TenantID: "tenant-a", Name: "p", CreatedAt: now, UpdatedAt: now,
	}))

	// 乱序插入，step_order 分别为 30/10/20，其中 20 未启用
	cards := []*model.PromptCard{
		{ProjectID: "proj-001", ID: "card-c", Name: "语气", StepOrder: 30, Content: "轻松幽默", Active: true, CreatedAt: now, UpdatedAt: now},
		{ProjectID: "proj-001", ID: "card-a", Name: "角色", StepOrder: 10, Content: "你是资深编辑", Active: true, CreatedAt: now, UpdatedAt: now},
		{ProjectID: "proj-001", ID: "card-b", Name: "禁用", StepOrder: 20, Content: "不参与拼装", Active: false, CreatedAt: now, UpdatedAt: now},
	}
	for _, c := range cards {
		require.NoError(t, s.CreatePromptCard(ctx, c))
	}

	// List 返回全部三张，按 step_order 升序
	all, err := s.ListPromptCards(ctx, "proj-001")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "card-a", all[0].ID)
	assert.Equal(t, "card-b", all[1].ID)
	assert.Equal(t, "card-c", all[2].ID)

	// ListActive 只返回启用的两张，顺序不变
	active, err := s.ListActivePromptCards(ctx, "proj-001")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "card-a", active[0].ID)
	assert.Equal(t, "card-c", active[1].ID)

	// content_length 在写入时计算
	got, err := s.GetPromptCard(ctx, "proj-001", "card-a")
	require.NoError(t, err)
	assert.Equal(t, len("你是资深编辑"), got.ContentLength)

	// Update 后重新计算
	got.Content = "你是标题党克星"
	require.NoError(t, s.UpdatePromptCard(ctx, got))
	got2, err := s.GetPromptCard(ctx, "proj-001", "card-a")
	require.NoError(t, err)
	assert.Equal(t, len("你是标题党克星"), got2.ContentLength)

	// Delete
	require.NoError(t, s.DeletePromptCard(ctx, "proj-001", "card-b"))
	_, err = s.GetPromptCard(ctx, "proj-001", "card-b")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// ============================================================================
// Execution 测试
// ============================================================================

func newTestExecution(id string, now time.Time) *model.Execution {
	return &model.Execution{
		ID:        id,
		ProjectID: "proj-001",
		Status:    model.ExecutionStatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func TestExecutionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	exec := newTestExecution("exec-001", now)
	require.NoError(t, s.CreateExecution(ctx, exec))

	// SUBMITTED → RUNNING
	require.NoError(t, s.MarkExecutionRunning(ctx, exec.ID))
	got, err := s.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusRunning, got.Status)

	// 重复标记 RUNNING 幂等
	require.NoError(t, s.MarkExecutionRunning(ctx, exec.ID))

	// RUNNING → SUCCEEDED（带结果与用量）
	result := "AI 编辑部的十个秘密"
	usage := &model.Usage{InputTokens: 1200, OutputTokens: 48}
	require.NoError(t, s.FinalizeExecution(ctx, exec.ID, model.ExecutionStatusSucceeded, &result, usage, nil))

	got, err = s.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusSucceeded, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, result, *got.Result)
	require.NotNil(t, got.Usage)
	assert.Equal(t, 1248, got.Usage.Total())
	assert.Nil(t, got.Error)
}

func TestExecutionTerminalConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	exec := newTestExecution("exec-002", now)
	require.NoError(t, s.CreateExecution(ctx, exec))
	require.NoError(t, s.MarkExecutionRunning(ctx, exec.ID))

	result := "标题"
	require.NoError(t, s.FinalizeExecution(ctx, exec.ID, model.ExecutionStatusSucceeded, &result, nil, nil))

	// 相同终止状态重写：幂等
	require.NoError(t, s.FinalizeExecution(ctx, exec.ID, model.ExecutionStatusSucceeded, &result, nil, nil))

	// 不同终止状态重写：冲突
	cerr := &model.ClassifiedError{Type: model.ErrTypeTimeout, Severity: model.SeverityHigh, Message: "timed out"}
	err := s.FinalizeExecution(ctx, exec.ID, model.ExecutionStatusTimedOut, nil, nil, cerr)
	assert.ErrorIs(t, err, storage.ErrConflict)

	// 结果未被污染
	got, err := s.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusSucceeded, got.Status)
	require.NotNil(t, got.Result)
}

func TestExecutionFailureWithClassifiedError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	exec := newTestExecution("exec-003", now)
	require.NoError(t, s.CreateExecution(ctx, exec))
	require.NoError(t, s.MarkExecutionRunning(ctx, exec.ID))

	cerr := &model.ClassifiedError{
		Type:     model.ErrTypeGuardrail,
		Severity: model.SeverityHigh,
		Message:  "content blocked by safety filter",
	}
	require.NoError(t, s.FinalizeExecution(ctx, exec.ID, model.ExecutionStatusFailed, nil, nil, cerr))

	got, err := s.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, model.ErrTypeGuardrail, got.Error.Type)
	assert.Equal(t, model.SeverityHigh, got.Error.Severity)
	assert.Nil(t, got.Result)
}

func TestDeleteExpiredExecutions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	expired := newTestExecution("exec-old", now.Add(-48*time.Hour))
	expired.ExpiresAt = now.Add(-1 * time.Hour)
	fresh := newTestExecution("exec-new", now)

	require.NoError(t, s.CreateExecution(ctx, expired))
	require.NoError(t, s.CreateExecution(ctx, fresh))

	n, err := s.DeleteExpiredExecutions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetExecution(ctx, "exec-old")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetExecution(ctx, "exec-new")
	require.NoError(t, err)
}

// ============================================================================
// User 测试
// ============================================================================

func TestUserStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	user := &model.User{
		ID:           "user-001",
		TenantID:     "tenant-a",
		Email:        "editor@example.com",
		Username:     "editor",
		PasswordHash: "$2a$10$fakehash",
		Role:         model.UserRoleUser,
		Status:       model.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateUser(ctx, user))

	// 邮箱唯一
	dup := *user
	dup.ID = "user-002"
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), storage.ErrDuplicate)

	got, err := s.GetUserByEmail(ctx, "editor@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-001", got.ID)

	_, err = s.GetUser(ctx, "user-missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
