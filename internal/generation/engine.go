package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"titlegen-admin/internal/generation/client"
	"titlegen-admin/internal/generation/composer"
	"titlegen-admin/internal/generation/tracker"
	"titlegen-admin/internal/shared/cache"
	"titlegen-admin/internal/shared/eventbus"
	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/notify"
	"titlegen-admin/internal/shared/queue"
	"titlegen-admin/internal/shared/storage"
	"titlegen-admin/pkg/logging"
)

// ArticleArchive 文章与执行记录的归档存取
//
// 队列消息只携带定位信息，文章正文由 API 层归档、worker 取回。
// objstore.Client 与 objstore.MemoryArchive 都实现此接口。
type ArticleArchive interface {
	PutArticle(ctx context.Context, projectID, executionID, article string) error
	GetArticle(ctx context.Context, projectID, executionID string) (string, error)
	PutExecution(ctx context.Context, exec *model.Execution, article string) error
}

// Deps 引擎依赖
type Deps struct {
	Store    storage.PersistentStore
	Tracker  *tracker.Tracker
	Composer *composer.Composer
	Client   client.ModelClient
	Events   eventbus.GenerationEventBus
	Prompts  cache.PromptCache // 可为 nil：不启用系统提示词缓存
	Notifier notify.Notifier   // 可为 nil：不外部告警
	Archive  ArticleArchive
}

// Engine 生成管线编排器
//
// 单次执行的完整流程：
//
//	领取 → RUNNING → 取文章 → 装配提示词 → 规范化 → 模型调用
//	     → 事件发布（进度/分片/完成/错误）→ 终态落库 → 归档
//
// 每次执行由独立的 worker 协程处理，执行之间不共享任何可变状态。
type Engine struct {
	store    storage.PersistentStore
	tracker  *tracker.Tracker
	composer *composer.Composer
	client   client.ModelClient
	events   eventbus.GenerationEventBus
	prompts  cache.PromptCache
	notifier notify.Notifier
	archive  ArticleArchive
	logger   *logging.Logger
}

// NewEngine 创建生成引擎
func NewEngine(deps Deps) *Engine {
	return &Engine{
		store:    deps.Store,
		tracker:  deps.Tracker,
		composer: deps.Composer,
		client:   deps.Client,
		events:   deps.Events,
		prompts:  deps.Prompts,
		notifier: deps.Notifier,
		archive:  deps.Archive,
		logger:   logging.Default("engine"),
	}
}

// Tracker 返回引擎使用的执行追踪器
func (e *Engine) Tracker() *tracker.Tracker {
	return e.tracker
}

// Archive 返回引擎使用的归档存取
func (e *Engine) Archive() ArticleArchive {
	return e.archive
}

// ============================================================================
// 事件发布
// ============================================================================

// emitter 单次生成的事件发布器，Seq 单调递增
//
// 发布失败只记日志：事件投递永远不能导致生成本身失败。
type emitter struct {
	events    eventbus.GenerationEventBus
	sessionID string
	seq       int
	logger    *logging.Logger
}

func (e *Engine) newEmitter(sessionID string) *emitter {
	return &emitter{events: e.events, sessionID: sessionID, logger: e.logger}
}

func (em *emitter) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if em.events == nil || em.sessionID == "" {
		return
	}
	em.seq++
	err := em.events.PublishGenerationEvent(ctx, em.sessionID, &eventbus.GenerationEvent{
		SessionID: em.sessionID,
		Seq:       em.seq,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		em.logger.WithError(err).Warn("failed to publish generation event",
			"session_id", em.sessionID, "type", eventType)
	}
}

func (em *emitter) progress(ctx context.Context, step string, percent int) {
	em.publish(ctx, eventbus.EventProgress, map[string]interface{}{
		"step":    step,
		"percent": percent,
	})
}

func (em *emitter) chunk(ctx context.Context, text string) {
	em.publish(ctx, eventbus.EventStreamChunk, map[string]interface{}{
		"text": text,
	})
}

func (em *emitter) complete(ctx context.Context, fullText string, usage model.Usage) {
	em.publish(ctx, eventbus.EventStreamComplete, map[string]interface{}{
		"full_text":     fullText,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
	})
}

func (em *emitter) error(ctx context.Context, ce *model.ClassifiedError) {
	em.publish(ctx, eventbus.EventError, map[string]interface{}{
		"type":     string(ce.Type),
		"severity": string(ce.Severity),
		"message":  ce.Message,
	})
}

// ============================================================================
// 异步执行（worker 路径）
// ============================================================================

// Execute 处理一条生成任务消息
//
// 返回 nil 表示消息可以 Ack（包括已分类记录的业务失败）；
// 返回非 nil 仅在消息应当重新投递时（领取阶段的基础设施错误）。
func (e *Engine) Execute(ctx context.Context, msg *queue.GenerationMessage) error {
	logger := e.logger.WithExecutionID(msg.ExecutionID).WithProjectID(msg.ProjectID)
	em := e.newEmitter(msg.SessionID)

	if err := e.tracker.MarkRunning(ctx, msg.ExecutionID); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// 排队期间已被外部终结（超时/取消），直接丢弃
			logger.Info("execution already finalized, skipping")
			return nil
		}
		if errors.Is(err, storage.ErrNotFound) {
			logger.Warn("execution record missing, skipping")
			return nil
		}
		return fmt.Errorf("failed to claim execution: %w", err)
	}
	em.progress(ctx, "execution_started", 10)

	article, err := e.archive.GetArticle(ctx, msg.ProjectID, msg.ExecutionID)
	if err != nil {
		e.fail(ctx, em, msg.ExecutionID, fmt.Errorf("failed to load article: %w", err))
		return nil
	}

	prompt, err := e.composeForProject(ctx, msg.ProjectID, nil, article)
	if err != nil {
		e.fail(ctx, em, msg.ExecutionID, err)
		return nil
	}
	em.progress(ctx, "prompt_built", 30)

	em.progress(ctx, "model_invoked", 50)
	result, err := e.client.Invoke(ctx, prompt)
	if err != nil {
		e.fail(ctx, em, msg.ExecutionID, err)
		return nil
	}

	if err := e.tracker.MarkSucceeded(ctx, msg.ExecutionID, result.Text, result.Usage); err != nil {
		// 典型场景：模型调用期间被外部终结，首个终态写入者获胜
		logger.WithError(err).Warn("success write rejected, keeping recorded terminal state")
		return nil
	}
	em.progress(ctx, "complete", 100)
	em.complete(ctx, result.Text, result.Usage)

	e.archiveResult(ctx, msg.ExecutionID, article)
	logger.GenerationLog("succeeded", msg.ExecutionID, msg.ProjectID,
		"output_tokens", result.Usage.OutputTokens)
	return nil
}

// fail 统一失败路径：分类 → 落库（不抛错）→ 告警 → 错误事件
func (e *Engine) fail(ctx context.Context, em *emitter, executionID string, err error) {
	ce := Classify(err)
	e.tracker.MarkFailed(ctx, executionID, ce)
	NotifyIfNeeded(ctx, e.notifier, executionID, ce)
	em.error(ctx, ce)
	e.logger.WithExecutionID(executionID).WithError(err).Error("generation failed",
		"error_type", string(ce.Type), "severity", string(ce.Severity))
}

// archiveResult 归档完整执行记录（尽力而为）
func (e *Engine) archiveResult(ctx context.Context, executionID, article string) {
	exec, err := e.tracker.Get(ctx, executionID)
	if err != nil {
		return
	}
	if err := e.archive.PutExecution(ctx, exec, article); err != nil {
		e.logger.WithError(err).Warn("failed to archive execution", "execution_id", executionID)
	}
}

// ============================================================================
// 流式执行（WebSocket 路径）
// ============================================================================

// Stream 执行一次流式生成，事件经事件总线按序推送
//
// cards 非空时使用请求内嵌的提示卡（覆盖项目配置），否则读取
// 项目的激活提示卡。整个会话恰好发布一条 stream_complete。
func (e *Engine) Stream(ctx context.Context, projectID, sessionID, userInput string,
	history []model.ConversationTurn, cards []*model.PromptCard) error {
	em := e.newEmitter(sessionID)

	var prompt *model.ComposedPrompt
	var err error
	if len(cards) > 0 {
		prompt, err = e.composer.Compose(cards, history, userInput)
	} else {
		prompt, err = e.composeForProject(ctx, projectID, history, userInput)
	}
	if err != nil {
		ce := Classify(err)
		em.error(ctx, ce)
		NotifyIfNeeded(ctx, e.notifier, sessionID, ce)
		return err
	}
	em.progress(ctx, "prompt_built", 10)

	em.progress(ctx, "streaming", 30)
	contentChan, errorChan := e.client.InvokeStream(ctx, prompt)

	var full strings.Builder
	for chunk := range contentChan {
		full.WriteString(chunk)
		em.chunk(ctx, chunk)
	}
	if err := <-errorChan; err != nil {
		ce := Classify(err)
		em.error(ctx, ce)
		NotifyIfNeeded(ctx, e.notifier, sessionID, ce)
		return err
	}

	em.progress(ctx, "complete", 100)
	em.complete(ctx, full.String(), model.Usage{
		InputTokens:  prompt.EstimatedTokens,
		OutputTokens: model.EstimateTokens(full.String()),
	})
	return nil
}

// ============================================================================
// 同步执行（chat 路径）
// ============================================================================

// ChatResult 同步生成的返回
type ChatResult struct {
	Text   string
	Usage  model.Usage
	Prompt *model.ComposedPrompt
}

// Chat 同步生成：装配、调用、整体返回
func (e *Engine) Chat(ctx context.Context, projectID, userInput string,
	history []model.ConversationTurn) (*ChatResult, error) {
	prompt, err := e.composeForProject(ctx, projectID, history, userInput)
	if err != nil {
		return nil, err
	}

	result, err := e.client.Invoke(ctx, prompt)
	if err != nil {
		ce := Classify(err)
		NotifyIfNeeded(ctx, e.notifier, projectID, ce)
		return nil, err
	}

	return &ChatResult{Text: result.Text, Usage: result.Usage, Prompt: prompt}, nil
}

// ============================================================================
// 提示词装配
// ============================================================================

// composeForProject 按项目装配提示词，命中系统提示词缓存时跳过卡片读取
func (e *Engine) composeForProject(ctx context.Context, projectID string,
	history []model.ConversationTurn, userInput string) (*model.ComposedPrompt, error) {
	if e.prompts != nil {
		if system, err := e.prompts.GetComposedPrompt(ctx, projectID); err == nil && system != "" {
			return e.composer.ComposeWithSystem(system, history, userInput)
		}
	}

	cards, err := e.store.ListActivePromptCards(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt cards: %w", err)
	}

	prompt, err := e.composer.Compose(cards, history, userInput)
	if err != nil {
		return nil, err
	}
	if e.prompts != nil {
		if cerr := e.prompts.SetComposedPrompt(ctx, projectID, prompt.System); cerr != nil {
			e.logger.WithError(cerr).Warn("failed to cache composed prompt", "project_id", projectID)
		}
	}
	return prompt, nil
}
