package project

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"titlegen-admin/internal/apiserver/auth"
	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
)

func newTestMux(store storage.ProjectStore) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(store).RegisterRoutes(mux)
	return mux
}

func seedProject(t *testing.T, store storage.ProjectStore, id, tenantID string) {
	t.Helper()
	now := time.Now()
	err := store.CreateProject(context.Background(), &model.Project{
		ID: id, TenantID: tenantID, Name: "news-desk",
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
}

func TestCreateProject(t *testing.T) {
	store := storage.NewMemoryStore()
	mux := newTestMux(store)

	body := `{"name":"体育新闻","description":"体育频道标题生成","model_id":"claude-sonnet-4-5"}`
	r := httptest.NewRequest("POST", "/api/v1/projects", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", w.Code, w.Body.String())
	}

	var got model.Project
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "体育新闻" || got.ModelID != "claude-sonnet-4-5" {
		t.Errorf("project = %+v", got)
	}
	if !strings.HasPrefix(got.ID, "proj-") {
		t.Errorf("ID = %q, want proj- prefix", got.ID)
	}
}

func TestCreateProject_MissingName(t *testing.T) {
	mux := newTestMux(storage.NewMemoryStore())

	r := httptest.NewRequest("POST", "/api/v1/projects", strings.NewReader(`{"description":"x"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	mux := newTestMux(storage.NewMemoryStore())

	r := httptest.NewRequest("GET", "/api/v1/projects/proj-missing", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateProject(t *testing.T) {
	store := storage.NewMemoryStore()
	seedProject(t, store, "proj-1", "")
	mux := newTestMux(store)

	r := httptest.NewRequest("PUT", "/api/v1/projects/proj-1", strings.NewReader(`{"name":"财经新闻"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	updated, err := store.GetProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if updated.Name != "财经新闻" {
		t.Errorf("Name = %q, want 财经新闻", updated.Name)
	}
}

func TestDeleteProject(t *testing.T) {
	store := storage.NewMemoryStore()
	seedProject(t, store, "proj-1", "")
	mux := newTestMux(store)

	r := httptest.NewRequest("DELETE", "/api/v1/projects/proj-1", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if _, err := store.GetProject(context.Background(), "proj-1"); err != storage.ErrNotFound {
		t.Errorf("after delete, err = %v, want ErrNotFound", err)
	}
}

// 其他租户的项目按不存在处理
func TestGetProject_TenantIsolation(t *testing.T) {
	store := storage.NewMemoryStore()
	seedProject(t, store, "proj-1", "tenant-a")
	mux := newTestMux(store)

	r := httptest.NewRequest("GET", "/api/v1/projects/proj-1", nil)
	r = r.WithContext(auth.WithTenantID(r.Context(), "tenant-b"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for foreign tenant", w.Code)
	}

	// 归属租户可见
	r2 := httptest.NewRequest("GET", "/api/v1/projects/proj-1", nil)
	r2 = r2.WithContext(auth.WithTenantID(r2.Context(), "tenant-a"))
	w2 := httptest.NewRecorder()
	mux.ServeHTTP(w2, r2)

	if w2.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for owning tenant", w2.Code)
	}
}

func TestListProjects_ScopedByTenant(t *testing.T) {
	store := storage.NewMemoryStore()
	seedProject(t, store, "proj-1", "tenant-a")
	seedProject(t, store, "proj-2", "tenant-b")
	mux := newTestMux(store)

	r := httptest.NewRequest("GET", "/api/v1/projects", nil)
	r = r.WithContext(auth.WithTenantID(r.Context(), "tenant-a"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Count    int              `json:"count"`
		Projects []*model.Project `json:"projects"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 || resp.Projects[0].ID != "proj-1" {
		t.Errorf("resp = %+v, want only tenant-a projects", resp)
	}
}
