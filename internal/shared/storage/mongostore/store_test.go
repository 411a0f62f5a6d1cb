package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
)

// testStore 创建测试用 Store，使用独立数据库避免污染
func testStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	dbName := "titlegen_admin_test"
	s, err := NewStore(uri, dbName)
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	// 清空测试数据库
	ctx := context.Background()
	if err := s.db.Drop(ctx); err != nil {
		t.Fatalf("Failed to drop test database: %v", err)
	}
	// 重新创建索引
	if err := s.ensureIndexes(ctx); err != nil {
		t.Fatalf("Failed to create indexes: %v", err)
	}

	t.Cleanup(func() {
		s.db.Drop(context.Background())
		s.Close()
	})

	return s
}

// Compile-time interface check
var _ storage.PersistentStore = (*Store)(nil)

func TestProjectCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	project := &model.Project{
		ID:        "proj-001",
		TenantID:  "tenant-a",
		Name:      "科技周报",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	got, err := s.GetProject(ctx, "proj-001")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Name != project.Name {
		t.Errorf("name = %q, want %q", got.Name, project.Name)
	}

	if _, err := s.GetProject(ctx, "proj-missing"); err != storage.ErrNotFound {
		t.Errorf("GetProject missing = %v, want ErrNotFound", err)
	}

	projects, err := s.ListProjects(ctx, "tenant-a", 10, 0)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 1 {
		t.Errorf("len(projects) = %d, want 1", len(projects))
	}
}

func TestExecutionTerminalConflict(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	exec := &model.Execution{
		ID:        "exec-001",
		ProjectID: "proj-001",
		Status:    model.ExecutionStatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	if err := s.CreateExecution(ctx, exec); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}
	if err := s.MarkExecutionRunning(ctx, exec.ID); err != nil {
		t.Fatalf("MarkExecutionRunning: %v", err)
	}

	result := "标题"
	if err := s.FinalizeExecution(ctx, exec.ID, model.ExecutionStatusSucceeded, &result, nil, nil); err != nil {
		t.Fatalf("FinalizeExecution: %v", err)
	}

	// 相同终止状态重写：幂等
	if err := s.FinalizeExecution(ctx, exec.ID, model.ExecutionStatusSucceeded, &result, nil, nil); err != nil {
		t.Errorf("idempotent rewrite = %v, want nil", err)
	}

	// 不同终止状态重写：冲突
	err := s.FinalizeExecution(ctx, exec.ID, model.ExecutionStatusAborted, nil, nil, nil)
	if err != storage.ErrConflict {
		t.Errorf("conflicting rewrite = %v, want ErrConflict", err)
	}
}
