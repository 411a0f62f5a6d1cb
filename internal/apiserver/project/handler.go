// Package project 项目领域 - HTTP 处理
package project

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	openapi "titlegen-admin/api/generated/go"
	"titlegen-admin/internal/apiserver/auth"
	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
)

// Handler 项目领域 HTTP 处理器
type Handler struct {
	store storage.ProjectStore // 使用接口类型
}

// NewHandler 创建项目处理器
func NewHandler(store storage.ProjectStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册项目相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/projects", h.List)
	mux.HandleFunc("POST /api/v1/projects", h.Create)
	mux.HandleFunc("GET /api/v1/projects/{id}", h.Get)
	mux.HandleFunc("PUT /api/v1/projects/{id}", h.Update)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", h.Delete)
}

// ============================================================================
// 类型别名（方便外部包使用）
// ============================================================================

// CreateRequest 创建项目的请求体（使用 OpenAPI 生成的类型）
type CreateRequest = openapi.CreateProjectRequest

// UpdateRequest 更新项目的请求体
type UpdateRequest = openapi.UpdateProjectRequest

// ============================================================================
// HTTP 处理函数
// ============================================================================

// Create 创建项目
// POST /api/v1/projects
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	now := time.Now()
	project := &model.Project{
		ID:        generateID("proj"),
		TenantID:  auth.GetTenantID(r.Context()),
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.ModelId != nil {
		project.ModelID = *req.ModelId
	}

	if err := h.store.CreateProject(r.Context(), project); err != nil {
		log.Printf("[Project] Create error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create project")
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// List 列出当前租户的项目
// GET /api/v1/projects?limit=50&offset=0
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	offset := parseIntParam(r, "offset", 0)

	tenantID := auth.GetTenantID(r.Context())
	projects, err := h.store.ListProjects(r.Context(), tenantID, limit, offset)
	if err != nil {
		log.Printf("[Project] List error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"count":    len(projects),
	})
}

// Get 获取项目详情
// GET /api/v1/projects/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadScoped(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Update 更新项目
// PUT /api/v1/projects/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadScoped(w, r)
	if !ok {
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
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.ModelId != nil {
		project.ModelID = *req.ModelId
	}
	project.UpdatedAt = time.Now()

	if err := h.store.UpdateProject(r.Context(), project); err != nil {
		log.Printf("[Project] Update error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update project")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Delete 删除项目
// DELETE /api/v1/projects/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteProject(r.Context(), project.ID); err != nil {
		log.Printf("[Project] Delete error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadScoped 按路径 ID 加载项目并校验租户归属
//
// 租户不匹配按 404 处理，避免泄露其他租户的项目存在性。
func (h *Handler) loadScoped(w http.ResponseWriter, r *http.Request) (*model.Project, bool) {
	id := r.PathValue("id")
	project, err := h.store.GetProject(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return nil, false
	}
	if err != nil {
		log.Printf("[Project] Get error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get project")
		return nil, false
	}

	tenantID := auth.GetTenantID(r.Context())
	if tenantID != "" && project.TenantID != tenantID {
		writeError(w, http.StatusNotFound, "project not found")
		return nil, false
	}
	return project, true
}

func parseIntParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
