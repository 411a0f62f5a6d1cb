// Package generate 异步生成领域 - HTTP 处理
//
// 提交路径：校验通过后归档文章、落库 SUBMITTED 记录、消息入队，
// 返回 202 与轮询地址。校验失败不产生任何记录。
// 轮询路径：优先读执行状态缓存，缓存缺失时回落数据库记录。
package generate

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	openapi "titlegen-admin/api/generated/go"
	"titlegen-admin/internal/apiserver/auth"
	"titlegen-admin/internal/config"
	"titlegen-admin/internal/generation"
	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/queue"
	"titlegen-admin/internal/shared/storage"
)

// Handler 生成领域 HTTP 处理器
type Handler struct {
	store    storage.ProjectStore
	engine   *generation.Engine
	genQueue queue.GenerationQueue
	cfg      config.GenerationConfig
}

// NewHandler 创建生成处理器
func NewHandler(store storage.ProjectStore, engine *generation.Engine,
	q queue.GenerationQueue, cfg config.GenerationConfig) *Handler {
	return &Handler{store: store, engine: engine, genQueue: q, cfg: cfg}
}

// RegisterRoutes 注册生成相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/projects/{id}/generate", h.Submit)
	mux.HandleFunc("GET /api/v1/executions/{id}", h.GetExecution)
}

// ============================================================================
// 类型别名（方便外部包使用）
// ============================================================================

// Request 提交生成任务的请求体（使用 OpenAPI 生成的类型）
type Request = openapi.GenerateRequest

// Accepted 任务受理响应
type Accepted = openapi.GenerateAccepted

// ============================================================================
// HTTP 处理函数
// ============================================================================

// Submit 提交异步生成任务
// POST /api/v1/projects/{id}/generate
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.scopeProject(w, r)
	if !ok {
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	article := strings.TrimSpace(req.Article)
	if article == "" {
		writeError(w, http.StatusBadRequest, "article is required")
		return
	}
	if utf8.RuneCountInString(article) < h.cfg.MinArticleLength {
		writeError(w, http.StatusBadRequest,
			"article must be at least "+strconv.Itoa(h.cfg.MinArticleLength)+" characters")
		return
	}

	var sessionID string
	if req.SessionId != nil {
		sessionID = *req.SessionId
	}

	executionID := generateID("exec")

	// 文章正文走归档存储，队列消息只携带定位信息
	if err := h.engine.Archive().PutArticle(r.Context(), projectID, executionID, article); err != nil {
		log.Printf("[Generate] Archive article error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to archive article")
		return
	}

	if _, err := h.engine.Tracker().Submit(r.Context(), executionID, projectID); err != nil {
		log.Printf("[Generate] Submit execution error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create execution")
		return
	}

	msg := &queue.GenerationMessage{
		ExecutionID: executionID,
		ProjectID:   projectID,
		SessionID:   sessionID,
		EnqueuedAt:  time.Now(),
	}
	if _, err := h.genQueue.EnqueueExecution(r.Context(), msg); err != nil {
		// 记录已落库但未入队：保留窗口到期后由清理回收
		log.Printf("[Generate] Enqueue execution %s error: %v", executionID, err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue execution")
		return
	}

	log.Printf("[Generate] Execution %s submitted for project %s", executionID, projectID)
	writeJSON(w, http.StatusAccepted, Accepted{
		ExecutionId: executionID,
		PollUrl:     "/api/v1/executions/" + executionID,
	})
}

// GetExecution 轮询执行状态
// GET /api/v1/executions/{id}
//
// 快速路径：执行进行中时状态缓存命中，不触达数据库。
// 终态或缓存缺失时读数据库记录；记录已过保留窗口但缓存尚存时
// 回落缓存快照；两者都没有则 404。
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tracker := h.engine.Tracker()

	state, err := tracker.GetCachedState(r.Context(), id)
	if err == nil && state != nil && !model.ExecutionStatus(state.Status).IsTerminal() {
		writeJSON(w, http.StatusOK, stateResponse(id, state))
		return
	}

	exec, err := tracker.Get(r.Context(), id)
	if err == nil {
		writeJSON(w, http.StatusOK, executionResponse(exec))
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[Generate] Get execution error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get execution")
		return
	}

	if state != nil {
		writeJSON(w, http.StatusOK, stateResponse(id, state))
		return
	}
	writeError(w, http.StatusNotFound, "execution not found")
}

// scopeProject 校验项目存在且归属当前租户
func (h *Handler) scopeProject(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	project, err := h.store.GetProject(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return "", false
	}
	if err != nil {
		log.Printf("[Generate] Get project error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get project")
		return "", false
	}

	tenantID := auth.GetTenantID(r.Context())
	if tenantID != "" && project.TenantID != tenantID {
		writeError(w, http.StatusNotFound, "project not found")
		return "", false
	}
	return id, true
}
