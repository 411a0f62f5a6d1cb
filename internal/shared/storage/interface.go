// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：repository/（SQL）、mongostore/（MongoDB）
//   - 初始化时通过依赖注入传入实现
//
// 注意：缓存、事件总线、队列在独立包：
//   - cache/：缓存与连接注册表接口
//   - eventbus/：生成事件总线接口
//   - queue/：生成任务队列接口
package storage

import (
	"context"
	"time"

	"titlegen-admin/internal/shared/model"
)

// ============================================================================
// 持久化存储接口
// ============================================================================

// ProjectStore 项目存储接口
type ProjectStore interface {
	CreateProject(ctx context.Context, project *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, tenantID string, limit, offset int) ([]*model.Project, error)
	UpdateProject(ctx context.Context, project *model.Project) error
	DeleteProject(ctx context.Context, id string) error
}

// PromptCardStore 提示卡存储接口
//
// 生成管线只使用 ListActivePromptCards；其余方法服务于项目管理接口。
type PromptCardStore interface {
	CreatePromptCard(ctx context.Context, card *model.PromptCard) error
	GetPromptCard(ctx context.Context, projectID, id string) (*model.PromptCard, error)
	ListPromptCards(ctx context.Context, projectID string) ([]*model.PromptCard, error)
	ListActivePromptCards(ctx context.Context, projectID string) ([]*model.PromptCard, error)
	UpdatePromptCard(ctx context.Context, card *model.PromptCard) error
	DeletePromptCard(ctx context.Context, projectID, id string) error
}

// ExecutionStore 执行记录存储接口
//
// 状态迁移约束由存储层保证：终止状态记录拒绝写入不同终止状态
// （返回 ErrConflict），相同状态重写视为幂等。
type ExecutionStore interface {
	CreateExecution(ctx context.Context, exec *model.Execution) error
	GetExecution(ctx context.Context, id string) (*model.Execution, error)
	ListExecutionsByProject(ctx context.Context, projectID string, limit int) ([]*model.Execution, error)

	// MarkExecutionRunning 记录 SUBMITTED → RUNNING 迁移
	MarkExecutionRunning(ctx context.Context, id string) error

	// FinalizeExecution 原子写入终止状态及结果/错误负载
	FinalizeExecution(ctx context.Context, id string, status model.ExecutionStatus,
		result *string, usage *model.Usage, cerr *model.ClassifiedError) error

	// DeleteExpiredExecutions 清理超过保留窗口的记录，返回删除条数
	DeleteExpiredExecutions(ctx context.Context, now time.Time) (int64, error)
}

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
}

// ============================================================================
// 组合接口
// ============================================================================

// PersistentStore 持久化存储组合接口
type PersistentStore interface {
	ProjectStore
	PromptCardStore
	ExecutionStore
	UserStore
	Close() error
}
