// Package model 定义核心数据模型
//
// conversation.go 包含对话相关的数据模型定义：
//   - ConversationTurn：一轮对话消息
//   - Role：消息角色枚举
//   - ComposedPrompt：装配完成的模型输入
package model

import (
	"time"
)

// ============================================================================
// Role - 消息角色
// ============================================================================

// Role 对话消息角色
//
// 发送给生成后端的消息序列必须严格满足 user/assistant 交替，
// 且首条为 user。规范化由 composer.Normalize 保证。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid 判断角色是否合法
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ============================================================================
// ConversationTurn - 一轮对话
// ============================================================================

// ConversationTurn 表示对话中的一条消息
//
// Timestamp 在会话内作为可排序的（足够）唯一标识使用。
type ConversationTurn struct {
	Role          Role      `json:"role" bson:"role"`                                       // 角色（user/assistant）
	Content       string    `json:"content" bson:"content"`                                 // 消息内容
	TokenEstimate int       `json:"token_estimate,omitempty" bson:"token_estimate,omitempty"` // token 估算（可选）
	Timestamp     time.Time `json:"timestamp,omitempty" bson:"timestamp,omitempty"`         // 时间戳
}

// ============================================================================
// ComposedPrompt - 装配完成的模型输入
// ============================================================================

// ComposedPrompt 表示一次生成请求的完整模型输入
//
// 由 composer.Compose 产出：
//   - System：激活提示卡按 StepOrder 升序拼接（空行分隔）
//   - Turns：规范化后的对话序列（首条 user，严格交替）
//   - EstimatedTokens：字符数/4 的估算值，保证 ≤ 配置的 token 预算
type ComposedPrompt struct {
	System          string             `json:"system"`           // 系统提示词
	Turns           []ConversationTurn `json:"turns"`            // 规范化对话序列
	EstimatedTokens int                `json:"estimated_tokens"` // 估算 token 总量
}

// EstimateTokens 按"1 token ≈ 4 字符"估算文本的 token 数（向上取整）
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
