package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"titlegen-admin/internal/config"
	"titlegen-admin/internal/generation"
	"titlegen-admin/internal/generation/client"
	"titlegen-admin/internal/generation/composer"
	"titlegen-admin/internal/generation/tracker"
	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/objstore"
	"titlegen-admin/internal/shared/storage"
)

func newFixture(t *testing.T, mock *client.MockClient) (*http.ServeMux, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()

	// 项目配置了与全局不同的 model_id：响应必须报告实际调用的全局模型
	now := time.Now()
	err := store.CreateProject(context.Background(), &model.Project{
		ID: "proj-1", Name: "体育新闻", ModelID: "claude-3-5-haiku-20241022",
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	engine := generation.NewEngine(generation.Deps{
		Store:    store,
		Tracker:  tracker.New(store, nil, time.Hour),
		Composer: composer.New(0),
		Client:   mock,
		Archive:  objstore.NewMemoryArchive(),
	})

	cfg := config.GenerationConfig{Provider: "anthropic", ModelID: "claude-sonnet-4-20250514"}
	mux := http.NewServeMux()
	NewHandler(store, engine, cfg).RegisterRoutes(mux)
	return mux, store
}

func TestChat(t *testing.T) {
	mock := &client.MockClient{
		Response: "绝杀夜：主队加冕",
		Usage:    model.Usage{InputTokens: 200, OutputTokens: 9},
	}
	mux, _ := newFixture(t, mock)

	body := `{"user_input":"给这篇比赛报道起个标题","chat_history":[{"role":"user","content":"要口语化"},{"role":"assistant","content":"明白"}]}`
	r := httptest.NewRequest("POST", "/api/v1/projects/proj-1/chat", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Result    string `json:"result"`
		Mode      string `json:"mode"`
		ModelInfo struct {
			Provider string `json:"provider"`
			ModelID  string `json:"model_id"`
		} `json:"model_info"`
		Usage *struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Result != "绝杀夜：主队加冕" || resp.Mode != "sync" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.ModelInfo.Provider != "anthropic" || resp.ModelInfo.ModelID != "claude-sonnet-4-20250514" {
		t.Errorf("model_info = %+v", resp.ModelInfo)
	}
	if resp.Usage == nil || resp.Usage.OutputTokens != 9 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	// 对话历史必须进入装配好的提示词
	prompt := mock.LastPrompt()
	if prompt == nil || len(prompt.Turns) != 3 {
		t.Fatalf("prompt turns = %+v", prompt)
	}
}

func TestChat_Validation(t *testing.T) {
	mux, _ := newFixture(t, &client.MockClient{Response: "x"})

	tests := []struct {
		name string
		body string
	}{
		{"missing user_input", `{}`},
		{"blank user_input", `{"user_input":"  "}`},
		{"invalid role", `{"user_input":"q","chat_history":[{"role":"system","content":"x"}]}`},
		{"invalid json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/projects/proj-1/chat", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, r)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestChat_ProjectNotFound(t *testing.T) {
	mux, _ := newFixture(t, &client.MockClient{Response: "x"})

	r := httptest.NewRequest("POST", "/api/v1/projects/proj-missing/chat",
		strings.NewReader(`{"user_input":"q"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"guardrail", client.ErrGuardrail, http.StatusUnprocessableEntity, "GuardrailViolation"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "TimeoutError"},
		{"model invocation", errFake("upstream unavailable"), http.StatusInternalServerError, "ModelInvocationError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, _ := newFixture(t, &client.MockClient{Err: tt.err})

			r := httptest.NewRequest("POST", "/api/v1/projects/proj-1/chat",
				strings.NewReader(`{"user_input":"起个标题"}`))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			var resp struct {
				Error     string `json:"error"`
				Type      string `json:"type"`
				Timestamp string `json:"timestamp"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Type != tt.wantType {
				t.Errorf("type = %q, want %q", resp.Type, tt.wantType)
			}
			if resp.Timestamp == "" {
				t.Error("timestamp missing")
			}
		})
	}
}

type errFake string

func (e errFake) Error() string { return string(e) }
