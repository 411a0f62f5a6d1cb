// Package composer 提示词装配与对话规范化
//
// 职责：
//   - Compose：把项目的激活提示卡、历史对话和当前输入装配成一次
//     完整的模型输入（ComposedPrompt），并执行 token 预算裁剪
//   - Normalize：规范化对话序列，保证严格 user/assistant 交替
//
// 两者都是纯函数，不访问存储、不产生副作用。
package composer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/containerd/errdefs"

	"titlegen-admin/internal/shared/model"
)

const (
	// defaultTokenBudget 默认 token 预算（按 180K 上下文窗口推导）
	defaultTokenBudget = 180000

	// systemBudgetShare 系统提示词最多占用的预算比例
	systemBudgetShare = 0.7

	// sectionSeparator 提示卡之间的分隔符
	sectionSeparator = "\n\n"
)

// ErrMissingArticle 当前用户输入为空时返回
var ErrMissingArticle = fmt.Errorf("article content is required: %w", errdefs.ErrInvalidArgument)

// Composer 提示词装配器
type Composer struct {
	tokenBudget int
}

// New 创建装配器；tokenBudget ≤ 0 时使用默认预算
func New(tokenBudget int) *Composer {
	if tokenBudget <= 0 {
		tokenBudget = defaultTokenBudget
	}
	return &Composer{tokenBudget: tokenBudget}
}

// TokenBudget 返回生效的 token 预算
func (c *Composer) TokenBudget() int {
	return c.tokenBudget
}

// Compose 装配一次生成请求的完整模型输入
//
// 流程：
//  1. 校验当前输入非空（空输入返回 ErrMissingArticle）
//  2. 激活提示卡按 StepOrder 升序拼接为系统提示词（空内容跳过）；
//     无可装配卡时回退到内置默认指令集
//  3. 历史对话追加当前输入（最后一条 user），整体规范化
//  4. 超出 token 预算时执行确定性裁剪（见 truncate）
//
// 返回的 ComposedPrompt 满足 EstimatedTokens ≤ 预算。
func (c *Composer) Compose(cards []*model.PromptCard, history []model.ConversationTurn, userInput string) (*model.ComposedPrompt, error) {
	return c.ComposeWithSystem(c.composeSystem(cards), history, userInput)
}

// ComposeWithSystem 使用现成的系统提示词装配（系统提示词缓存命中时走此路径）
func (c *Composer) ComposeWithSystem(system string, history []model.ConversationTurn, userInput string) (*model.ComposedPrompt, error) {
	if strings.TrimSpace(userInput) == "" {
		return nil, ErrMissingArticle
	}
	if system == "" {
		system = DefaultSystemPrompt()
	}

	turns := make([]model.ConversationTurn, 0, len(history)+1)
	turns = append(turns, history...)
	turns = append(turns, model.ConversationTurn{Role: model.RoleUser, Content: userInput})
	turns = Normalize(turns)

	system, turns = c.truncate(system, turns)

	total := model.EstimateTokens(system)
	for i := range turns {
		turns[i].TokenEstimate = model.EstimateTokens(turns[i].Content)
		total += turns[i].TokenEstimate
	}

	return &model.ComposedPrompt{
		System:          system,
		Turns:           turns,
		EstimatedTokens: total,
	}, nil
}

// composeSystem 按 StepOrder 升序拼接激活提示卡
//
// 排序是稳定的：同序号的卡保持原有顺序。没有任何可装配的卡时
// 回退到内置默认指令集，生成流程照常进行。
func (c *Composer) composeSystem(cards []*model.PromptCard) string {
	sorted := make([]*model.PromptCard, len(cards))
	copy(sorted, cards)
	model.SortCardsByStepOrder(sorted)

	sections := make([]string, 0, len(sorted))
	for _, card := range sorted {
		if !card.IsComposable() {
			continue
		}
		sections = append(sections, card.Content)
	}
	if len(sections) == 0 {
		return DefaultSystemPrompt()
	}
	return strings.Join(sections, sectionSeparator)
}

// truncate 执行确定性预算裁剪
//
// 规则：
//   - 总估算 ≤ 预算时原样返回
//   - 系统提示词最多保留预算的 70%（仅当它单独超出该份额时才裁剪）
//   - 剩余预算分配给对话序列：从头保留，超出处截断该条内容并
//     丢弃其后所有消息（只丢尾部字符，从不重排）
func (c *Composer) truncate(system string, turns []model.ConversationTurn) (string, []model.ConversationTurn) {
	total := model.EstimateTokens(system)
	for _, t := range turns {
		total += model.EstimateTokens(t.Content)
	}
	if total <= c.tokenBudget {
		return system, turns
	}

	maxSystemTokens := int(float64(c.tokenBudget) * systemBudgetShare)
	if model.EstimateTokens(system) > maxSystemTokens {
		system = truncateToChars(system, maxSystemTokens*4)
	}

	remaining := c.tokenBudget - model.EstimateTokens(system)
	kept := make([]model.ConversationTurn, 0, len(turns))
	for _, t := range turns {
		need := model.EstimateTokens(t.Content)
		if need <= remaining {
			kept = append(kept, t)
			remaining -= need
			continue
		}
		// 截断当前条内容后，其后消息全部丢弃
		t.Content = truncateToChars(t.Content, remaining*4)
		if t.Content != "" {
			kept = append(kept, t)
		}
		break
	}
	return system, kept
}

// truncateToChars 按字节上限截断字符串，回退到合法的 UTF-8 边界
func truncateToChars(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
