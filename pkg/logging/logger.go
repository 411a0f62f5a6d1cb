// Package logging 结构化日志
package logging

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"
)

// ContextKey 上下文键类型
type ContextKey string

const (
	TraceIDKey     ContextKey = "trace_id"
	SpanIDKey      ContextKey = "span_id"
	ProjectIDKey   ContextKey = "project_id"
	ExecutionIDKey ContextKey = "execution_id"
	SessionIDKey   ContextKey = "session_id"
)

// Logger 结构化日志器
type Logger struct {
	*slog.Logger
	component string
}

// Config 日志配置
type Config struct {
	Level     string `json:"level"`
	Format    string `json:"format"` // json or text
	Output    string `json:"output"` // stdout, stderr, or file path
	Component string `json:"component"`
}

// New 创建新的日志器
func New(cfg Config) *Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var output io.Writer
	switch cfg.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			output = os.Stdout
		} else {
			output = f
		}
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		Logger:    slog.New(handler),
		component: cfg.Component,
	}
}

// Default 创建默认日志器
func Default(component string) *Logger {
	return New(Config{
		Level:     os.Getenv("LOG_LEVEL"),
		Format:    os.Getenv("LOG_FORMAT"),
		Output:    "stdout",
		Component: component,
	})
}

// WithContext 从上下文提取追踪信息
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := []any{slog.String("component", l.component)}

	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}
	if spanID, ok := ctx.Value(SpanIDKey).(string); ok && spanID != "" {
		attrs = append(attrs, slog.String("span_id", spanID))
	}
	if projectID, ok := ctx.Value(ProjectIDKey).(string); ok && projectID != "" {
		attrs = append(attrs, slog.String("project_id", projectID))
	}
	if executionID, ok := ctx.Value(ExecutionIDKey).(string); ok && executionID != "" {
		attrs = append(attrs, slog.String("execution_id", executionID))
	}
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok && sessionID != "" {
		attrs = append(attrs, slog.String("session_id", sessionID))
	}

	return &Logger{
		Logger:    l.Logger.With(attrs...),
		component: l.component,
	}
}

// WithExecutionID 添加执行记录 ID
func (l *Logger) WithExecutionID(executionID string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(slog.String("execution_id", executionID)),
		component: l.component,
	}
}

// WithProjectID 添加项目 ID
func (l *Logger) WithProjectID(projectID string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(slog.String("project_id", projectID)),
		component: l.component,
	}
}

// WithSessionID 添加会话 ID
func (l *Logger) WithSessionID(sessionID string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(slog.String("session_id", sessionID)),
		component: l.component,
	}
}

// WithError 添加错误信息
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{
		Logger:    l.Logger.With(slog.String("error", err.Error())),
		component: l.component,
	}
}

// WithDuration 添加持续时间
func (l *Logger) WithDuration(d time.Duration) *Logger {
	return &Logger{
		Logger:    l.Logger.With(slog.Float64("duration_ms", float64(d.Milliseconds()))),
		component: l.component,
	}
}

// LogEntry 日志条目（用于 Loki 兼容格式）
type LogEntry struct {
	Timestamp   time.Time              `json:"ts"`
	Level       string                 `json:"level"`
	Message     string                 `json:"msg"`
	Component   string                 `json:"component"`
	TraceID     string                 `json:"trace_id,omitempty"`
	SpanID      string                 `json:"span_id,omitempty"`
	ProjectID   string                 `json:"project_id,omitempty"`
	ExecutionID string                 `json:"execution_id,omitempty"`
	SessionID   string                 `json:"session_id,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Duration    float64                `json:"duration_ms,omitempty"`
	Caller      string                 `json:"caller,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// ToJSON 转换为 JSON 字符串
func (e *LogEntry) ToJSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// HTTPRequestLog HTTP 请求日志
func (l *Logger) HTTPRequestLog(method, path string, status int, duration time.Duration, clientIP string) {
	l.Logger.Info("HTTP request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
		slog.String("client_ip", clientIP),
	)
}

// DBQueryLog 数据库查询日志
func (l *Logger) DBQueryLog(operation, table string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("table", table),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.Logger.Error("DB query failed", attrs...)
	} else {
		l.Logger.Debug("DB query", attrs...)
	}
}

// GenerationLog 生成执行日志
func (l *Logger) GenerationLog(action, executionID, projectID string, extra ...any) {
	attrs := []any{
		slog.String("action", action),
		slog.String("execution_id", executionID),
		slog.String("project_id", projectID),
	}
	attrs = append(attrs, extra...)
	l.Logger.Info("Generation event", attrs...)
}

// ModelCallLog 模型调用日志
func (l *Logger) ModelCallLog(provider, modelID string, latency time.Duration, err error) {
	attrs := []any{
		slog.String("provider", provider),
		slog.String("model_id", modelID),
		slog.Float64("latency_ms", float64(latency.Milliseconds())),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.Logger.Warn("Model call failed", attrs...)
	} else {
		l.Logger.Debug("Model call completed", attrs...)
	}
}

// GetCaller 获取调用者信息
func GetCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	short := file
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			break
		}
	}
	return short + ":" + strconv.Itoa(line)
}
