// Package model 定义核心数据模型
//
// project.go 包含项目相关的数据模型定义：
//   - Project：租户下的标题生成项目（拥有一组提示卡）
package model

import (
	"time"
)

// ============================================================================
// Project - 项目
// ============================================================================

// Project 表示一个标题生成项目
//
// 项目是多租户隔离的基本单位：
//   - 每个项目拥有独立的提示卡集合
//   - 每个项目可配置使用的模型（ModelID 为空时使用全局默认）
//   - 生成与聊天请求都以项目为入口
type Project struct {
	ID          string    `json:"id" bson:"_id" db:"id"`                                   // 项目唯一标识
	TenantID    string    `json:"tenant_id" bson:"tenant_id" db:"tenant_id"`               // 所属租户 ID
	Name        string    `json:"name" bson:"name" db:"name"`                              // 项目名称
	Description string    `json:"description,omitempty" bson:"description,omitempty" db:"description"` // 描述
	ModelID     string    `json:"model_id,omitempty" bson:"model_id,omitempty" db:"model_id"` // 模型标识（可选）
	CreatedAt   time.Time `json:"created_at" bson:"created_at" db:"created_at"`            // 创建时间
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`            // 更新时间
}
