package objstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"titlegen-admin/internal/shared/model"
)

// MemoryArchive 内存归档实现
//
// 用于测试和未配置对象存储的部署：接口语义与 Client 一致，
// 进程退出即丢失。
type MemoryArchive struct {
	mu         sync.RWMutex
	articles   map[string]string
	executions map[string]*ArchivedExecution
}

// NewMemoryArchive 创建内存归档
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		articles:   make(map[string]string),
		executions: make(map[string]*ArchivedExecution),
	}
}

// PutArticle 归档文章原文
func (m *MemoryArchive) PutArticle(ctx context.Context, projectID, executionID, article string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[articleKey(projectID, executionID)] = article
	return nil
}

// GetArticle 读取归档的文章原文
func (m *MemoryArchive) GetArticle(ctx context.Context, projectID, executionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	article, ok := m.articles[articleKey(projectID, executionID)]
	if !ok {
		return "", fmt.Errorf("article not found: %s/%s", projectID, executionID)
	}
	return article, nil
}

// PutExecution 归档完整执行记录
func (m *MemoryArchive) PutExecution(ctx context.Context, exec *model.Execution, article string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions[executionKey(exec.ProjectID, exec.ID)] = &ArchivedExecution{
		Execution:  exec,
		Article:    article,
		ArchivedAt: time.Now(),
	}
	return nil
}

// GetExecution 读取归档的执行记录
func (m *MemoryArchive) GetExecution(ctx context.Context, projectID, executionID string) (*ArchivedExecution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	archived, ok := m.executions[executionKey(projectID, executionID)]
	if !ok {
		return nil, fmt.Errorf("execution archive not found: %s/%s", projectID, executionID)
	}
	return archived, nil
}
