package composer

import (
	"strings"

	"titlegen-admin/internal/shared/model"
)

// mergeSeparator 同角色消息合并时的内容分隔符
const mergeSeparator = "\n\n"

// Normalize 规范化对话序列，保证严格的 user/assistant 交替
//
// 发送给生成后端的消息序列必须满足：首条为 user，之后严格交替。
// 规范化算法（顺序不可调整）：
//  1. 丢弃内容为空或角色非法的消息
//  2. 合并相邻同角色消息（内容用空行拼接，顺序保持不变）
//  3. 若首条为 assistant，丢弃之
//  4. 从左到右重新扫描：相邻同角色时丢弃靠后的一条，直到满足交替
//
// 输出要么为空，要么首条为 user 且严格交替。无副作用，永不失败，
// 且满足幂等性：对输出再次规范化得到相同结果。
func Normalize(turns []model.ConversationTurn) []model.ConversationTurn {
	// 步骤 1：丢弃空内容和非法角色
	cleaned := make([]model.ConversationTurn, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Content) == "" || !t.Role.Valid() {
			continue
		}
		cleaned = append(cleaned, t)
	}
	if len(cleaned) == 0 {
		return nil
	}

	// 步骤 2：合并相邻同角色消息
	merged := make([]model.ConversationTurn, 0, len(cleaned))
	for _, t := range cleaned {
		if n := len(merged); n > 0 && merged[n-1].Role == t.Role {
			merged[n-1].Content += mergeSeparator + t.Content
			continue
		}
		merged = append(merged, t)
	}

	// 步骤 3：丢弃开头的 assistant
	if merged[0].Role == model.RoleAssistant {
		merged = merged[1:]
	}

	// 步骤 4：重新扫描，相邻同角色时丢弃靠后的一条
	result := make([]model.ConversationTurn, 0, len(merged))
	for _, t := range merged {
		if n := len(result); n > 0 && result[n-1].Role == t.Role {
			continue
		}
		result = append(result, t)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
