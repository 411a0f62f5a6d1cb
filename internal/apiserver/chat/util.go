package chat

import (
	"encoding/json"
	"fmt"
	"net/http"

	openapi "titlegen-admin/api/generated/go"
	"titlegen-admin/internal/shared/model"
)

// writeJSON 写入 JSON 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError 写入错误响应
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// convertHistory 将请求中的对话历史转换为领域类型并校验角色
func convertHistory(turns *[]openapi.ConversationTurn) ([]model.ConversationTurn, error) {
	if turns == nil {
		return nil, nil
	}
	history := make([]model.ConversationTurn, 0, len(*turns))
	for i, t := range *turns {
		role := model.Role(t.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("chat_history[%d]: invalid role %q", i, t.Role)
		}
		history = append(history, model.ConversationTurn{
			Role:    role,
			Content: t.Content,
		})
	}
	return history, nil
}
