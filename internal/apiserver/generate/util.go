package generate

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"

	openapi "titlegen-admin/api/generated/go"
	"titlegen-admin/internal/shared/cache"
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

// generateID 生成带前缀的随机 ID
// 格式：prefix-xxxxxxxxxxxx（prefix + 12 字符 hex）
func generateID(prefix string) string {
	b := make([]byte, 6)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}

// ============================================================================
// Model -> OpenAPI 转换函数
// ============================================================================

// jsonBridgeConvert 通过 JSON 序列化/反序列化转换类型
// 用于 model 类型与 OpenAPI 类型之间的转换
func jsonBridgeConvert[T any](src interface{}) *T {
	if src == nil {
		return nil
	}
	data, err := json.Marshal(src)
	if err != nil {
		return nil
	}
	var dst T
	if err := json.Unmarshal(data, &dst); err != nil {
		return nil
	}
	return &dst
}

// executionResponse 将数据库记录转换为轮询响应
func executionResponse(exec *model.Execution) openapi.ExecutionState {
	resp := openapi.ExecutionState{
		ExecutionId: exec.ID,
		Status:      openapi.ExecutionStatus(exec.Status),
		Result:      exec.Result,
	}
	if exec.Usage != nil {
		resp.Usage = jsonBridgeConvert[openapi.Usage](exec.Usage)
	}
	if exec.Error != nil {
		resp.Error = jsonBridgeConvert[openapi.ClassifiedError](exec.Error)
	}
	return resp
}

// stateResponse 将缓存快照转换为轮询响应
func stateResponse(executionID string, state *cache.ExecutionState) openapi.ExecutionState {
	resp := openapi.ExecutionState{
		ExecutionId: executionID,
		Status:      openapi.ExecutionStatus(state.Status),
		Progress:    &state.Progress,
		Step:        &state.Step,
	}
	if state.Error != "" {
		resp.Error = &openapi.ClassifiedError{Message: state.Error}
	}
	return resp
}
