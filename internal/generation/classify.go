// Package generation 标题生成管线核心
//
// 组成：
//   - classify.go：错误分类器（错误 → 分类/级别/是否告警）
//   - engine.go：管线编排（装配 → 规范化 → 模型调用 → 事件发布 → 终态落库）
//
// 纯装配与规范化逻辑在 composer 子包，模型适配在 client 子包，
// 执行状态机在 tracker 子包。
package generation

import (
	"context"
	"errors"
	"log"

	"github.com/containerd/errdefs"

	"titlegen-admin/internal/generation/client"
	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/notify"
	"titlegen-admin/internal/shared/storage"
)

// Classify 把任意上游失败映射为一条分类错误
//
// 级别规则：
//   - HIGH：安全策略拦截、超时、资源限额
//   - LOW：校验/解析类错误
//   - MEDIUM：其余情况（默认）
func Classify(err error) *model.ClassifiedError {
	if err == nil {
		return nil
	}

	ce := &model.ClassifiedError{
		Message: err.Error(),
	}

	switch {
	case errors.Is(err, client.ErrGuardrail):
		ce.Type = model.ErrTypeGuardrail
		ce.Severity = model.SeverityHigh
	case errdefs.IsDeadlineExceeded(err) || errors.Is(err, context.DeadlineExceeded):
		ce.Type = model.ErrTypeTimeout
		ce.Severity = model.SeverityHigh
	case errdefs.IsResourceExhausted(err):
		ce.Type = model.ErrTypeResourceLimit
		ce.Severity = model.SeverityHigh
	case errdefs.IsInvalidArgument(err):
		ce.Type = model.ErrTypeValidation
		ce.Severity = model.SeverityLow
	case errdefs.IsUnauthorized(err) || errdefs.IsPermissionDenied(err):
		ce.Type = model.ErrTypeAuthorization
		ce.Severity = model.SeverityMedium
	case errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrConflict) ||
		errors.Is(err, storage.ErrDuplicate):
		ce.Type = model.ErrTypePersistence
		ce.Severity = model.SeverityMedium
	default:
		ce.Type = model.ErrTypeModelInvocation
		ce.Severity = model.SeverityMedium
	}

	if cause := errors.Unwrap(err); cause != nil {
		ce.Details = cause.Error()
	}
	return ce
}

// highImpactTypes 无论计算出的级别如何都必须告警的错误分类
var highImpactTypes = map[model.ErrorType]bool{
	model.ErrTypeGuardrail:     true,
	model.ErrTypeTimeout:       true,
	model.ErrTypeResourceLimit: true,
}

// ShouldNotify 判断分类错误是否需要外部告警
func ShouldNotify(ce *model.ClassifiedError) bool {
	if ce == nil {
		return false
	}
	return ce.Severity == model.SeverityHigh || highImpactTypes[ce.Type]
}

// NotifyIfNeeded 按告警策略发送外部通知（尽力而为）
//
// 通知失败只记日志，不影响主流程结果。
func NotifyIfNeeded(ctx context.Context, notifier notify.Notifier, executionID string, ce *model.ClassifiedError) {
	if notifier == nil || !ShouldNotify(ce) {
		return
	}
	if err := notifier.NotifyError(ctx, executionID, ce); err != nil {
		log.Printf("[Generation] Failed to send alert for execution %s: %v", executionID, err)
	}
}
