// Package notify 外部告警通知
//
// 高危错误（守护栏拦截、超时、资源限额）触发外部告警，
// 通知失败只记日志，不影响主流程。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"titlegen-admin/internal/shared/model"
)

// Notifier 告警通知接口
type Notifier interface {
	NotifyError(ctx context.Context, executionID string, cerr *model.ClassifiedError) error
}

// ============================================================================
// WebhookNotifier - Webhook 告警实现
// ============================================================================

// WebhookNotifier 将告警以 JSON POST 到配置的 Webhook 地址
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier 创建 Webhook 通知器
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// alertPayload Webhook 消息体
type alertPayload struct {
	ExecutionID string              `json:"execution_id"`
	Severity    model.ErrorSeverity `json:"severity"`
	Type        model.ErrorType     `json:"type"`
	Message     string              `json:"message"`
	Timestamp   time.Time           `json:"timestamp"`
}

// NotifyError 发送错误告警
func (n *WebhookNotifier) NotifyError(ctx context.Context, executionID string, cerr *model.ClassifiedError) error {
	payload := alertPayload{
		ExecutionID: executionID,
		Severity:    cerr.Severity,
		Type:        cerr.Type,
		Message:     cerr.Message,
		Timestamp:   time.Now(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned %d", resp.StatusCode)
	}

	log.Printf("[Notify] Sent alert: exec=%s type=%s severity=%s", executionID, cerr.Type, cerr.Severity)
	return nil
}

// ============================================================================
// NoOpNotifier - 空操作实现（未配置 Webhook 时使用）
// ============================================================================

// NoOpNotifier 不发送任何告警
type NoOpNotifier struct{}

// NewNoOpNotifier 创建 NoOpNotifier 实例
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

func (n *NoOpNotifier) NotifyError(ctx context.Context, executionID string, cerr *model.ClassifiedError) error {
	return nil
}

var (
	_ Notifier = (*WebhookNotifier)(nil)
	_ Notifier = (*NoOpNotifier)(nil)
)
