// Package chat 同步对话领域 - HTTP 处理
//
// 一问一答的同步生成入口：装配提示词、调用模型、整体返回。
// 错误先经分类器归类，再映射为对应的 HTTP 状态码。
package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	openapi "titlegen-admin/api/generated/go"
	"titlegen-admin/internal/apiserver/auth"
	"titlegen-admin/internal/config"
	"titlegen-admin/internal/generation"
	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
)

// Handler 同步对话 HTTP 处理器
type Handler struct {
	store  storage.ProjectStore
	engine *generation.Engine
	cfg    config.GenerationConfig
}

// NewHandler 创建对话处理器
func NewHandler(store storage.ProjectStore, engine *generation.Engine, cfg config.GenerationConfig) *Handler {
	return &Handler{store: store, engine: engine, cfg: cfg}
}

// RegisterRoutes 注册对话相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/projects/{id}/chat", h.Chat)
}

// Request 对话请求体（使用 OpenAPI 生成的类型）
type Request = openapi.ChatRequest

// Chat 同步生成
// POST /api/v1/projects/{id}/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	project, ok := h.scopeProject(w, r)
	if !ok {
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		writeError(w, http.StatusBadRequest, "user_input is required")
		return
	}

	history, err := convertHistory(req.ChatHistory)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.Chat(r.Context(), project.ID, req.UserInput, history)
	if err != nil {
		h.writeClassified(w, err)
		return
	}

	provider := h.cfg.Provider
	if provider == "" {
		provider = "anthropic"
	}

	// model_info 报告实际调用的模型：客户端在启动时按全局配置构建。
	// TODO: ModelClient 支持按调用指定模型后，这里改为报告 project.ModelID
	writeJSON(w, http.StatusOK, openapi.ChatResponse{
		Result:    result.Text,
		Mode:      "sync",
		ModelInfo: openapi.ModelInfo{Provider: provider, ModelId: h.cfg.ModelID},
		Usage: &openapi.Usage{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
		},
	})
}

// writeClassified 按分类错误映射 HTTP 状态码
func (h *Handler) writeClassified(w http.ResponseWriter, err error) {
	ce := generation.Classify(err)
	status := http.StatusInternalServerError
	switch ce.Type {
	case model.ErrTypeValidation:
		status = http.StatusBadRequest
	case model.ErrTypeAuthorization:
		status = http.StatusUnauthorized
	case model.ErrTypeGuardrail:
		status = http.StatusUnprocessableEntity
	case model.ErrTypeTimeout:
		status = http.StatusGatewayTimeout
	case model.ErrTypeResourceLimit:
		status = http.StatusTooManyRequests
	}

	if status == http.StatusInternalServerError {
		log.Printf("[Chat] Generation error: %v", err)
	}
	writeJSON(w, status, map[string]interface{}{
		"error":     ce.Message,
		"type":      string(ce.Type),
		"severity":  string(ce.Severity),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// scopeProject 校验项目存在且归属当前租户
func (h *Handler) scopeProject(w http.ResponseWriter, r *http.Request) (*model.Project, bool) {
	project, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return nil, false
	}
	if err != nil {
		log.Printf("[Chat] Get project error: %v", err)
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
