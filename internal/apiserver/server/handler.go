// Package server 路由配置与核心基础设施
//
// 本文件定义 HTTP API 路由，将请求分发到各领域独立包。
// 仍保留在本包的模块：
//   - events.go: 事件轮询接口（依赖事件总线）
//   - websocket.go: WebSocket 流式分发器
//   - metrics.go: Prometheus 指标
package server

import (
	"net/http"

	"titlegen-admin/internal/apiserver/auth"
	"titlegen-admin/internal/apiserver/chat"
	"titlegen-admin/internal/apiserver/generate"
	"titlegen-admin/internal/apiserver/project"
	"titlegen-admin/internal/apiserver/promptcard"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查:
//   - GET /health - 服务健康检查
//
// 项目管理 (Project):
//   - GET    /api/v1/projects           - 列出项目
//   - POST   /api/v1/projects           - 创建项目
//   - GET    /api/v1/projects/{id}      - 获取项目详情
//   - PUT    /api/v1/projects/{id}      - 更新项目
//   - DELETE /api/v1/projects/{id}      - 删除项目
//
// 提示卡管理 (PromptCard):
//   - GET    /api/v1/projects/{id}/prompts             - 列出提示卡
//   - POST   /api/v1/projects/{id}/prompts             - 创建提示卡
//   - PUT    /api/v1/projects/{id}/prompts/{promptId}  - 更新提示卡
//   - DELETE /api/v1/projects/{id}/prompts/{promptId}  - 删除提示卡
//
// 生成 (Generation):
//   - POST   /api/v1/projects/{id}/generate - 提交异步生成任务（202）
//   - GET    /api/v1/executions/{id}        - 轮询执行状态
//   - POST   /api/v1/projects/{id}/chat     - 同步对话生成
//
// 事件 (Event):
//   - GET    /api/v1/sessions/{id}/events   - 轮询会话事件
//
// WebSocket:
//   - GET    /ws/generate                   - 流式生成推送
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", MetricsHandler())

	// Project 接口
	projectHandler := project.NewHandler(h.store)
	projectHandler.RegisterRoutes(mux)

	// PromptCard 接口
	// 传入拼装缓存：提示卡变更时失效对应项目的系统提示词
	cardHandler := promptcard.NewHandler(h.store, h.promptCache)
	cardHandler.RegisterRoutes(mux)

	// 生成接口（入队 + 轮询）
	genHandler := generate.NewHandler(h.store, h.engine, h.genQueue, h.genConfig)
	genHandler.RegisterRoutes(mux)

	// 同步对话接口
	chatHandler := chat.NewHandler(h.store, h.engine, h.genConfig)
	chatHandler.RegisterRoutes(mux)

	// 事件轮询接口
	mux.HandleFunc("GET /api/v1/sessions/{id}/events", h.GetSessionEvents)

	// Auth 路由
	authHandler := auth.NewHandler(h.store, h.authConfig)
	authHandler.RegisterRoutes(mux)

	// 应用指标中间件到 REST API
	apiHandler := h.metrics.MetricsMiddleware(mux)

	// 应用认证中间件
	authedHandler := auth.Middleware(h.authConfig)(apiHandler)

	// 应用 CORS 中间件
	corsHandler := corsMiddleware(authedHandler)

	// 创建顶层路由，WebSocket 绕过 metrics 中间件（避免 http.Hijacker 问题）
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /ws/generate", h.dispatcher.HandleWebSocket)
	topMux.Handle("/", corsHandler)

	return topMux
}

// corsMiddleware 添加 CORS 头支持跨域请求
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
