// Package cache 缓存层类型定义
package cache

import (
	"time"
)

// ============================================================================
// 缓存数据类型
// ============================================================================

// ExecutionState 执行状态快照
//
// 只缓存轮询接口需要的轻量字段，完整记录以数据库为准。
type ExecutionState struct {
	Status   string `json:"status" redis:"status"`
	Progress int    `json:"progress" redis:"progress"`
	Step     string `json:"step" redis:"step"`
	Error    string `json:"error,omitempty" redis:"error"`
}

// ConnectionEntry WebSocket 连接注册条目
type ConnectionEntry struct {
	SessionID string    `json:"session_id" redis:"session_id"`
	ProjectID string    `json:"project_id" redis:"project_id"`
	Instance  string    `json:"instance" redis:"instance"`
	CreatedAt time.Time `json:"created_at" redis:"created_at"`
}

// ============================================================================
// Key 前缀和 TTL 常量
// ============================================================================

const (
	// Key 前缀
	KeyExecutionStatus = "exec_status:"
	KeyConnection      = "ws_conn:"
	KeyComposedPrompt  = "composed_prompt:"

	// TTL 常量
	TTLExecutionStatus = 1 * time.Hour
	TTLConnection      = 10 * time.Minute
	TTLComposedPrompt  = 5 * time.Minute
)
