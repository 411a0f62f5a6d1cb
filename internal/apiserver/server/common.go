// Package server 提供 HTTP API 核心基础设施
//
// 本包实现标题生成服务的 API 入口，包括：
//   - 路由聚合（各领域包通过 RegisterRoutes 挂载）
//   - WebSocket 流式推送（StreamDispatcher）
//   - 事件轮询接口
//   - Prometheus 指标
//
// 文件组织：
//   - common.go: 通用工具函数和 Handler 定义
//   - handler.go: 路由配置与中间件链
//   - events.go: 事件轮询接口
//   - websocket.go: WebSocket 流式分发器
//   - metrics.go: Prometheus 指标
package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"titlegen-admin/internal/apiserver/auth"
	"titlegen-admin/internal/config"
	"titlegen-admin/internal/generation"
	"titlegen-admin/internal/shared/cache"
	"titlegen-admin/internal/shared/eventbus"
	"titlegen-admin/internal/shared/infra"
	"titlegen-admin/internal/shared/queue"
	"titlegen-admin/internal/shared/storage"
)

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 路由请求到各领域处理函数
//   - 管理存储层与基础设施连接
//   - 协调流式分发器和指标
//
// 依赖接口说明（接口隔离原则）：
//   - genQueue: 生成任务队列（generate 接口入队，worker 消费）
//   - genEventBus: 生成事件总线（WebSocket 推送 + 轮询）
//   - statusCache: 执行状态缓存（轮询快速路径）
//   - connRegistry: WebSocket 连接注册表
//   - promptCache: 拼装结果缓存（提示卡变更时失效）
type Handler struct {
	store storage.PersistentStore // 持久化存储（业务数据）

	// 队列接口（任务分发）
	genQueue queue.GenerationQueue

	// 事件总线接口（发布/订阅）
	genEventBus eventbus.GenerationEventBus

	// 缓存接口
	statusCache  cache.ExecutionStatusCache
	connRegistry cache.ConnectionRegistry
	promptCache  cache.PromptCache

	// 内部组件
	engine     *generation.Engine // 生成引擎（chat 同步路径 + WS 流式路径）
	dispatcher *StreamDispatcher  // WebSocket 流式分发器
	metrics    *Metrics           // Prometheus 指标

	// 配置
	authConfig auth.Config
	genConfig  config.GenerationConfig
}

// NewHandler 创建 Handler 实例
//
// 参数：
//   - inf: 基础设施聚合（存储 + 缓存 + 事件总线 + 队列）
//   - engine: 生成引擎实例
//   - authCfg: 认证配置
//   - genCfg: 生成管线配置
func NewHandler(inf *infra.Infrastructure, engine *generation.Engine,
	authCfg auth.Config, genCfg config.GenerationConfig) *Handler {
	h := &Handler{
		store:      inf.Storage,
		engine:     engine,
		authConfig: authCfg,
		genConfig:  genCfg,
	}

	// 从基础设施聚合提取具体接口（接口隔离）
	if inf.Queue != nil {
		h.genQueue = inf.Queue
	}
	if inf.EventBus != nil {
		h.genEventBus = inf.EventBus
	}
	if inf.Cache != nil {
		h.statusCache = inf.Cache
		h.connRegistry = inf.Cache
		h.promptCache = inf.Cache
	}

	h.metrics = NewMetrics("api")
	h.dispatcher = NewStreamDispatcher(engine, h.genEventBus, h.connRegistry, h.metrics)
	return h
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// Dispatcher 返回 WebSocket 流式分发器
func (h *Handler) Dispatcher() *StreamDispatcher {
	return h.dispatcher
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError 将错误信息以 JSON 格式写入 HTTP 响应
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// generateID 生成带前缀的唯一标识符
//
// 使用加密安全的随机数生成 6 字节（12 个十六进制字符）的 ID，
// 格式为：prefix-xxxxxxxxxxxx
func generateID(prefix string) string {
	b := make([]byte, 6)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 用于负载均衡器和监控系统检查服务状态。
// 返回 {"status": "ok"} 表示服务正常运行。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
