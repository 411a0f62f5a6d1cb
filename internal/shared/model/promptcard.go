// Package model 定义核心数据模型
//
// promptcard.go 包含提示卡相关的数据模型定义：
//   - PromptCard：项目级可复用的指令块（按步骤顺序装配进系统提示词）
package model

import (
	"sort"
	"strings"
	"time"
)

// ============================================================================
// PromptCard - 提示卡
// ============================================================================

// PromptCard 表示一个可复用的角色指令块
//
// 每个项目维护一组提示卡，生成时按 StepOrder 升序装配为系统提示词：
//   - 未激活（Active=false）的卡不参与装配
//   - 内容为空的卡在装配时跳过
//   - 提示卡由项目管理接口创建/更新，生成管线只读
type PromptCard struct {
	ProjectID     string    `json:"project_id" bson:"project_id" db:"project_id"`          // 所属项目 ID
	ID            string    `json:"id" bson:"_id" db:"id"`                                 // 提示卡唯一标识
	Name          string    `json:"name" bson:"name" db:"name"`                            // 名称（如 "角色设定"、"风格约束"）
	StepOrder     int       `json:"step_order" bson:"step_order" db:"step_order"`          // 装配顺序（升序）
	Content       string    `json:"content" bson:"content" db:"content"`                   // 指令内容
	Active        bool      `json:"active" bson:"active" db:"active"`                      // 是否参与装配
	ContentLength int       `json:"content_length" bson:"content_length" db:"content_length"` // 内容长度（字符数）
	CreatedAt     time.Time `json:"created_at" bson:"created_at" db:"created_at"`          // 创建时间
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`          // 更新时间
}

// IsComposable 判断提示卡是否参与装配
func (p *PromptCard) IsComposable() bool {
	return p.Active && strings.TrimSpace(p.Content) != ""
}

// SortCardsByStepOrder 按 StepOrder 升序排序（稳定排序，同序号保持插入顺序）
func SortCardsByStepOrder(cards []*PromptCard) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].StepOrder < cards[j].StepOrder
	})
}
