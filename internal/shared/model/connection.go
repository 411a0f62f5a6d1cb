// Package model 定义核心数据模型
//
// connection.go 包含流式连接相关的数据模型定义：
//   - Connection：一条活跃的 WebSocket 推送通道
package model

import (
	"time"
)

// ============================================================================
// Connection - 流式连接
// ============================================================================

// Connection 表示一条已注册的流式推送通道
//
// 生命周期：
//   - connect 时注册（带 TTL，防止悬挂记录堆积）
//   - disconnect 时显式移除
//   - 推送失败（通道已死）时由分发器惰性清理
type Connection struct {
	ID        string    `json:"id" bson:"_id"`                                  // 连接唯一标识
	ProjectID string    `json:"project_id" bson:"project_id"`                   // 关联项目 ID
	SessionID string    `json:"session_id" bson:"session_id"`                   // 会话 ID（事件按会话分发）
	CreatedAt time.Time `json:"created_at" bson:"created_at"`                   // 建立时间
	ExpiresAt time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"` // 注册过期时间
}
