// Package promptcard 提示卡领域 - HTTP 处理
//
// 提示卡是项目级可复用的指令块，生成时按 step_order 升序装配为
// 系统提示词。任何变更都会失效对应项目的拼装缓存。
package promptcard

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	openapi "titlegen-admin/api/generated/go"
	"titlegen-admin/internal/apiserver/auth"
	"titlegen-admin/internal/shared/cache"
	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
)

// Store 提示卡处理器依赖的存储子集
type Store interface {
	storage.ProjectStore
	storage.PromptCardStore
}

// Handler 提示卡领域 HTTP 处理器
type Handler struct {
	store   Store
	prompts cache.PromptCache // 可为 nil：不启用拼装缓存
}

// NewHandler 创建提示卡处理器
func NewHandler(store Store, prompts cache.PromptCache) *Handler {
	return &Handler{store: store, prompts: prompts}
}

// RegisterRoutes 注册提示卡相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/projects/{id}/prompts", h.List)
	mux.HandleFunc("POST /api/v1/projects/{id}/prompts", h.Create)
	mux.HandleFunc("PUT /api/v1/projects/{id}/prompts/{promptId}", h.Update)
	mux.HandleFunc("DELETE /api/v1/projects/{id}/prompts/{promptId}", h.Delete)
}

// ============================================================================
// 类型别名（方便外部包使用）
// ============================================================================

// CreateRequest 创建提示卡的请求体（使用 OpenAPI 生成的类型）
type CreateRequest = openapi.CreatePromptCardRequest

// UpdateRequest 更新提示卡的请求体
type UpdateRequest = openapi.UpdatePromptCardRequest

// ============================================================================
// HTTP 处理函数
// ============================================================================

// List 列出项目的提示卡（按 step_order 升序）
// GET /api/v1/projects/{id}/prompts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.scopeProject(w, r)
	if !ok {
		return
	}

	cards, err := h.store.ListPromptCards(r.Context(), projectID)
	if err != nil {
		log.Printf("[PromptCard] List error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list prompt cards")
		return
	}
	model.SortCardsByStepOrder(cards)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"prompts": cards,
		"count":   len(cards),
	})
}

// Create 创建提示卡
// POST /api/v1/projects/{id}/prompts
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.scopeProject(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	now := time.Now()
	card := &model.PromptCard{
		ProjectID:     projectID,
		ID:            generateID("card"),
		Name:          req.Name,
		Content:       req.Content,
		Active:        true,
		ContentLength: utf8.RuneCountInString(req.Content),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.StepOrder != nil {
		card.StepOrder = *req.StepOrder
	}
	if req.Active != nil {
		card.Active = *req.Active
	}

	if err := h.store.CreatePromptCard(r.Context(), card); err != nil {
		log.Printf("[PromptCard] Create error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create prompt card")
		return
	}

	h.invalidate(r.Context(), projectID)
	writeJSON(w, http.StatusCreated, card)
}

// Update 更新提示卡
// PUT /api/v1/projects/{id}/prompts/{promptId}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.scopeProject(w, r)
	if !ok {
		return
	}

	card, err := h.store.GetPromptCard(r.Context(), projectID, r.PathValue("promptId"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "prompt card not found")
		return
	}
	if err != nil {
		log.Printf("[PromptCard] Get error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get prompt card")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		card.Name = *req.Name
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			writeError(w, http.StatusBadRequest, "content cannot be empty")
			return
		}
		card.Content = *req.Content
		card.ContentLength = utf8.RuneCountInString(*req.Content)
	}
	if req.StepOrder != nil {
		card.StepOrder = *req.StepOrder
	}
	if req.Active != nil {
		card.Active = *req.Active
	}
	card.UpdatedAt = time.Now()

	if err := h.store.UpdatePromptCard(r.Context(), card); err != nil {
		log.Printf("[PromptCard] Update error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update prompt card")
		return
	}

	h.invalidate(r.Context(), projectID)
	writeJSON(w, http.StatusOK, card)
}

// Delete 删除提示卡
// DELETE /api/v1/projects/{id}/prompts/{promptId}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.scopeProject(w, r)
	if !ok {
		return
	}

	err := h.store.DeletePromptCard(r.Context(), projectID, r.PathValue("promptId"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "prompt card not found")
		return
	}
	if err != nil {
		log.Printf("[PromptCard] Delete error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete prompt card")
		return
	}

	h.invalidate(r.Context(), projectID)
	w.WriteHeader(http.StatusNoContent)
}

// scopeProject 校验项目存在且归属当前租户，返回项目 ID
func (h *Handler) scopeProject(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	project, err := h.store.GetProject(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return "", false
	}
	if err != nil {
		log.Printf("[PromptCard] Get project error: %v", err)
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

// invalidate 失效项目的拼装缓存
//
// 提示卡变更后旧的系统提示词不能再被复用；失效失败只记日志，
// 缓存条目会随 TTL 过期。
func (h *Handler) invalidate(ctx context.Context, projectID string) {
	if h.prompts == nil {
		return
	}
	if err := h.prompts.InvalidateComposedPrompt(ctx, projectID); err != nil {
		log.Printf("[PromptCard] Failed to invalidate composed prompt for %s: %v", projectID, err)
	}
}
