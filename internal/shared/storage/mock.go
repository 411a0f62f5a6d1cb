// Package storage 提供存储层抽象
//
// mock.go 提供用于测试的内存实现
package storage

import (
	"context"
	"sync"
	"time"

	"titlegen-admin/internal/shared/model"
)

// ============================================================================
// MemoryStore - 内存版 PersistentStore（用于测试）
// ============================================================================

// MemoryStore 纯内存的 PersistentStore 实现
//
// 与 SQL 实现保持相同的语义，包括终止状态冲突拒绝，
// 使处理器和生成管线测试无需真实数据库。
type MemoryStore struct {
	mu         sync.RWMutex
	projects   map[string]*model.Project
	cards      map[string]map[string]*model.PromptCard // projectID -> cardID -> card
	executions map[string]*model.Execution
	users      map[string]*model.User
}

// NewMemoryStore 创建内存存储实例
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:   make(map[string]*model.Project),
		cards:      make(map[string]map[string]*model.PromptCard),
		executions: make(map[string]*model.Execution),
		users:      make(map[string]*model.User),
	}
}

var _ PersistentStore = (*MemoryStore)(nil)

// Close 关闭存储
func (s *MemoryStore) Close() error {
	return nil
}

// ----------------------------------------------------------------------------
// ProjectStore
// ----------------------------------------------------------------------------

func (s *MemoryStore) CreateProject(ctx context.Context, project *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[project.ID]; ok {
		return ErrDuplicate
	}
	cp := *project
	s.projects[project.ID] = &cp
	return nil
}

func (s *MemoryStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListProjects(ctx context.Context, tenantID string, limit, offset int) ([]*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Project
	for _, p := range s.projects {
		if tenantID != "" && p.TenantID != tenantID {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

func (s *MemoryStore) UpdateProject(ctx context.Context, project *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[project.ID]; !ok {
		return ErrNotFound
	}
	cp := *project
	cp.UpdatedAt = time.Now()
	s.projects[project.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return ErrNotFound
	}
	delete(s.projects, id)
	delete(s.cards, id)
	return nil
}

// ----------------------------------------------------------------------------
// PromptCardStore
// ----------------------------------------------------------------------------

func (s *MemoryStore) CreatePromptCard(ctx context.Context, card *model.PromptCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cards[card.ProjectID] == nil {
		s.cards[card.ProjectID] = make(map[string]*model.PromptCard)
	}
	if _, ok := s.cards[card.ProjectID][card.ID]; ok {
		return ErrDuplicate
	}
	cp := *card
	s.cards[card.ProjectID][card.ID] = &cp
	return nil
}

func (s *MemoryStore) GetPromptCard(ctx context.Context, projectID, id string) (*model.PromptCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[projectID][id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListPromptCards(ctx context.Context, projectID string) ([]*model.PromptCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.PromptCard
	for _, c := range s.cards[projectID] {
		cp := *c
		result = append(result, &cp)
	}
	model.SortCardsByStepOrder(result)
	return result, nil
}

func (s *MemoryStore) ListActivePromptCards(ctx context.Context, projectID string) ([]*model.PromptCard, error) {
	all, err := s.ListPromptCards(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var result []*model.PromptCard
	for _, c := range all {
		if c.Active {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *MemoryStore) UpdatePromptCard(ctx context.Context, card *model.PromptCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[card.ProjectID][card.ID]; !ok {
		return ErrNotFound
	}
	cp := *card
	cp.UpdatedAt = time.Now()
	s.cards[card.ProjectID][card.ID] = &cp
	return nil
}

func (s *MemoryStore) DeletePromptCard(ctx context.Context, projectID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[projectID][id]; !ok {
		return ErrNotFound
	}
	delete(s.cards[projectID], id)
	return nil
}

// ----------------------------------------------------------------------------
// ExecutionStore
// ----------------------------------------------------------------------------

func (s *MemoryStore) CreateExecution(ctx context.Context, exec *model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.executions[exec.ID]; ok {
		return ErrDuplicate
	}
	cp := *exec
	s.executions[exec.ID] = &cp
	return nil
}

func (s *MemoryStore) GetExecution(ctx context.Context, id string) (*model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.executions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) ListExecutionsByProject(ctx context.Context, projectID string, limit int) ([]*model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Execution
	for _, e := range s.executions {
		if e.ProjectID != projectID {
			continue
		}
		cp := *e
		result = append(result, &cp)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *MemoryStore) MarkExecutionRunning(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok {
		return ErrNotFound
	}
	if !e.Status.CanTransitionTo(model.ExecutionStatusRunning) {
		return ErrConflict
	}
	e.Status = model.ExecutionStatusRunning
	e.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) FinalizeExecution(ctx context.Context, id string, status model.ExecutionStatus,
	result *string, usage *model.Usage, cerr *model.ClassifiedError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok {
		return ErrNotFound
	}
	if e.Status.IsTerminal() {
		// 相同终止状态的重复写入视为幂等
		if e.Status == status {
			return nil
		}
		return ErrConflict
	}
	e.Status = status
	e.Result = result
	e.Usage = usage
	e.Error = cerr
	e.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteExpiredExecutions(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.executions {
		if !e.ExpiresAt.IsZero() && e.ExpiresAt.Before(now) {
			delete(s.executions, id)
			n++
		}
	}
	return n, nil
}

// ----------------------------------------------------------------------------
// UserStore
// ----------------------------------------------------------------------------

func (s *MemoryStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}
