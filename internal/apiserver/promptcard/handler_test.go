package promptcard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"titlegen-admin/internal/shared/cache"
	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
)

func newFixture(t *testing.T) (*http.ServeMux, *storage.MemoryStore, *cache.MemoryCache) {
	t.Helper()
	store := storage.NewMemoryStore()
	promptCache := cache.NewMemoryCache()

	now := time.Now()
	err := store.CreateProject(context.Background(), &model.Project{
		ID: "proj-1", Name: "news-desk", CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	mux := http.NewServeMux()
	NewHandler(store, promptCache).RegisterRoutes(mux)
	return mux, store, promptCache
}

func TestCreatePromptCard(t *testing.T) {
	mux, store, _ := newFixture(t)

	body := `{"name":"风格约束","content":"标题不超过 20 个字","step_order":10}`
	r := httptest.NewRequest("POST", "/api/v1/projects/proj-1/prompts", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", w.Code, w.Body.String())
	}

	var got model.PromptCard
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "风格约束" || got.StepOrder != 10 || !got.Active {
		t.Errorf("card = %+v", got)
	}
	if got.ContentLength != 11 {
		t.Errorf("ContentLength = %d, want 11 (rune count)", got.ContentLength)
	}

	cards, _ := store.ListPromptCards(context.Background(), "proj-1")
	if len(cards) != 1 {
		t.Errorf("stored cards = %d, want 1", len(cards))
	}
}

func TestCreatePromptCard_Validation(t *testing.T) {
	mux, _, _ := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"content":"x"}`},
		{"missing content", `{"name":"n"}`},
		{"blank content", `{"name":"n","content":"   "}`},
		{"invalid json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/projects/proj-1/prompts", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, r)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestCreatePromptCard_ProjectNotFound(t *testing.T) {
	mux, _, _ := newFixture(t)

	r := httptest.NewRequest("POST", "/api/v1/projects/proj-missing/prompts",
		strings.NewReader(`{"name":"n","content":"c"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListPromptCards_Sorted(t *testing.T) {
	mux, store, _ := newFixture(t)
	ctx := context.Background()

	for _, c := range []struct {
		id    string
		order int
	}{
		{"card-b", 30}, {"card-a", 10}, {"card-c", 20},
	} {
		store.CreatePromptCard(ctx, &model.PromptCard{
			ProjectID: "proj-1", ID: c.id, Name: c.id, StepOrder: c.order,
			Content: "x", Active: true,
		})
	}

	r := httptest.NewRequest("GET", "/api/v1/projects/proj-1/prompts", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Prompts []*model.PromptCard `json:"prompts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var ids []string
	for _, c := range resp.Prompts {
		ids = append(ids, c.ID)
	}
	want := []string{"card-a", "card-c", "card-b"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
}

func TestUpdatePromptCard_InvalidatesComposedPrompt(t *testing.T) {
	mux, store, promptCache := newFixture(t)
	ctx := context.Background()

	store.CreatePromptCard(ctx, &model.PromptCard{
		ProjectID: "proj-1", ID: "card-1", Name: "style", Content: "old", Active: true,
	})
	promptCache.SetComposedPrompt(ctx, "proj-1", "cached system prompt")

	r := httptest.NewRequest("PUT", "/api/v1/projects/proj-1/prompts/card-1",
		strings.NewReader(`{"content":"new instruction","active":false}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	card, err := store.GetPromptCard(ctx, "proj-1", "card-1")
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if card.Content != "new instruction" || card.Active {
		t.Errorf("card = %+v", card)
	}

	// 拼装缓存必须已失效
	if cached, _ := promptCache.GetComposedPrompt(ctx, "proj-1"); cached != "" {
		t.Errorf("composed prompt still cached: %q", cached)
	}
}

func TestDeletePromptCard(t *testing.T) {
	mux, store, promptCache := newFixture(t)
	ctx := context.Background()

	store.CreatePromptCard(ctx, &model.PromptCard{
		ProjectID: "proj-1", ID: "card-1", Name: "style", Content: "x", Active: true,
	})
	promptCache.SetComposedPrompt(ctx, "proj-1", "cached")

	r := httptest.NewRequest("DELETE", "/api/v1/projects/proj-1/prompts/card-1", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if _, err := store.GetPromptCard(ctx, "proj-1", "card-1"); err != storage.ErrNotFound {
		t.Errorf("after delete, err = %v, want ErrNotFound", err)
	}
	if cached, _ := promptCache.GetComposedPrompt(ctx, "proj-1"); cached != "" {
		t.Errorf("composed prompt still cached after delete")
	}
}

func TestDeletePromptCard_NotFound(t *testing.T) {
	mux, _, _ := newFixture(t)

	r := httptest.NewRequest("DELETE", "/api/v1/projects/proj-1/prompts/card-missing", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
