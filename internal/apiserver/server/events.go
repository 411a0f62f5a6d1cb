package server

import (
	"net/http"
	"strconv"
)

// GetSessionEvents 轮询会话事件
//
// 路由: GET /api/v1/sessions/{id}/events
//
// 查询参数：
//   - from_id: 起始事件 ID（不含），用于增量拉取
//   - count: 最大返回条数（默认全部）
//
// WebSocket 不可用时的降级通道：客户端按 from_id 游标增量轮询，
// 事件按 Seq 升序返回。
func (h *Handler) GetSessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	if h.genEventBus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not configured")
		return
	}

	fromID := r.URL.Query().Get("from_id")
	var count int64
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid count")
			return
		}
		count = n
	}

	events, err := h.genEventBus.GetGenerationEvents(r.Context(), sessionID, fromID, count)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"count":      len(events),
		"events":     events,
	})
}
