// Package model 定义核心数据模型
//
// execution.go 包含生成执行相关的数据模型定义：
//   - Execution：一次标题生成任务的执行记录
//   - ExecutionStatus：执行状态枚举
//   - Usage：模型调用用量统计
package model

import (
	"time"
)

// ============================================================================
// ExecutionStatus - 执行状态
// ============================================================================

// ExecutionStatus 表示一次生成执行（Execution）的状态
//
// Execution 是一次异步标题生成请求的执行记录，状态反映这一次生成的进展：
//   - submitted：已提交，等待 worker 领取
//   - running：模型调用进行中
//   - succeeded：生成成功（结果已写入）
//   - failed：生成失败（分类错误已写入）
//   - timed_out：外部编排层判定超时
//   - aborted：外部显式取消
//
// 终止状态一旦写入即不可变：后续不同终止状态的写入会被拒绝并记录异常，
// 相同终止状态的重复写入视为幂等。
type ExecutionStatus string

const (
	// ExecutionStatusSubmitted 已提交：记录已创建，等待 worker 领取
	ExecutionStatusSubmitted ExecutionStatus = "SUBMITTED"

	// ExecutionStatusRunning 执行中：worker 已开始调用模型
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusSucceeded 已成功：结果与用量已原子写入
	ExecutionStatusSucceeded ExecutionStatus = "SUCCEEDED"

	// ExecutionStatusFailed 已失败：分类错误已写入
	ExecutionStatusFailed ExecutionStatus = "FAILED"

	// ExecutionStatusTimedOut 已超时：由外部编排层驱动，无结果
	ExecutionStatusTimedOut ExecutionStatus = "TIMED_OUT"

	// ExecutionStatusAborted 已取消：由外部显式取消，无结果
	ExecutionStatusAborted ExecutionStatus = "ABORTED"
)

// IsTerminal 判断状态是否为终止状态
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusSucceeded, ExecutionStatusFailed,
		ExecutionStatusTimedOut, ExecutionStatusAborted:
		return true
	default:
		return false
	}
}

// CanTransitionTo 判断从当前状态到目标状态的迁移是否合法
//
// 状态机：
//
//	SUBMITTED → RUNNING → {SUCCEEDED, FAILED, TIMED_OUT, ABORTED}
//
// 特例：
//   - SUBMITTED 可直接进入 TIMED_OUT/ABORTED（worker 未领取即被取消）
//   - 终止状态 → 相同终止状态视为幂等重写，允许
//   - 终止状态 → 不同状态一律拒绝
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	if s.IsTerminal() {
		return s == next
	}
	switch s {
	case ExecutionStatusSubmitted:
		return next == ExecutionStatusRunning ||
			next == ExecutionStatusTimedOut || next == ExecutionStatusAborted
	case ExecutionStatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

// ============================================================================
// Usage - 模型调用用量
// ============================================================================

// Usage 模型调用的 token 用量统计
type Usage struct {
	// InputTokens 输入 token 数
	InputTokens int `json:"input_tokens" bson:"input_tokens"`

	// OutputTokens 输出 token 数
	OutputTokens int `json:"output_tokens" bson:"output_tokens"`
}

// Total 输入输出 token 总数
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// ============================================================================
// Execution - 生成执行记录
// ============================================================================

// Execution 表示一次异步标题生成的执行记录
//
// Execution 由 API 层创建（SUBMITTED），worker 领取后推进状态，
// 轮询客户端通过 GET /api/v1/executions/{id} 读取：
//   - 每个 Execution 绑定到一个 Project
//   - Result 仅在 SUCCEEDED 时存在
//   - Error 仅在 FAILED/TIMED_OUT/ABORTED 时存在
//   - ExpiresAt 之后记录可被自动清理（保留窗口）
//
// 典型生命周期：
//
//	创建 → SUBMITTED → RUNNING → SUCCEEDED/FAILED/TIMED_OUT/ABORTED
type Execution struct {
	ID        string          `json:"id" bson:"_id" db:"id"`                                   // 执行唯一标识
	ProjectID string          `json:"project_id" bson:"project_id" db:"project_id"`            // 所属项目 ID
	Status    ExecutionStatus `json:"status" bson:"status" db:"status"`                        // 执行状态
	Result    *string         `json:"result,omitempty" bson:"result,omitempty" db:"result"`    // 生成结果（成功时）
	Usage     *Usage          `json:"usage,omitempty" bson:"usage,omitempty" db:"usage"`       // 用量统计（成功时）
	Error     *ClassifiedError `json:"error,omitempty" bson:"error,omitempty" db:"error"`      // 分类错误（失败时）
	CreatedAt time.Time       `json:"created_at" bson:"created_at" db:"created_at"`            // 创建时间
	UpdatedAt time.Time       `json:"updated_at" bson:"updated_at" db:"updated_at"`            // 更新时间
	ExpiresAt time.Time       `json:"expires_at" bson:"expires_at" db:"expires_at"`            // 记录过期时间
}

// IsTerminal 判断 Execution 是否处于终止状态
func (e *Execution) IsTerminal() bool {
	return e.Status.IsTerminal()
}

// ============================================================================
// ClassifiedError - 分类后的错误
// ============================================================================

// ErrorSeverity 错误严重级别
type ErrorSeverity string

const (
	SeverityHigh   ErrorSeverity = "HIGH"
	SeverityMedium ErrorSeverity = "MEDIUM"
	SeverityLow    ErrorSeverity = "LOW"
)

// ErrorType 错误分类
type ErrorType string

const (
	ErrTypeValidation      ErrorType = "ValidationError"
	ErrTypeAuthorization   ErrorType = "AuthorizationError"
	ErrTypeModelInvocation ErrorType = "ModelInvocationError"
	ErrTypeGuardrail       ErrorType = "GuardrailViolation"
	ErrTypeTimeout         ErrorType = "TimeoutError"
	ErrTypeResourceLimit   ErrorType = "ResourceLimitError"
	ErrTypePersistence     ErrorType = "PersistenceError"
)

// ClassifiedError 分类后的错误信息
//
// 由错误分类器（generation.Classify）产出，写入 Execution 并决定是否外部告警。
type ClassifiedError struct {
	Type     ErrorType     `json:"type" bson:"type"`                             // 错误分类
	Severity ErrorSeverity `json:"severity" bson:"severity"`                     // 严重级别
	Message  string        `json:"message" bson:"message"`                       // 人类可读信息
	Details  string        `json:"details,omitempty" bson:"details,omitempty"`   // 附加细节（原始错误链）
}
