// Package client 生成后端适配器
//
// ModelClient 是生成管线对模型提供方的唯一抽象：
//   - Invoke：阻塞调用，返回完整文本与用量
//   - InvokeStream：流式调用，返回增量文本通道与错误通道
//
// 适配器是无状态的：调用之间不保留任何本地状态，重试与退避
// 在单次调用内部完成。
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"titlegen-admin/internal/config"
	"titlegen-admin/internal/shared/model"
)

// ErrGuardrail 内容被提供方安全策略拦截
var ErrGuardrail = errors.New("content blocked by provider guardrail")

// Result 阻塞调用的返回
type Result struct {
	Text  string      // 完整生成文本
	Usage model.Usage // token 用量
}

// ModelClient 模型调用抽象
//
// InvokeStream 返回的内容通道是有限、不可重放的增量序列：
// 通道关闭即流结束，完整文本由消费方自行拼接。错误通道最多
// 产生一个错误；两个通道都会被适配器关闭。
type ModelClient interface {
	Invoke(ctx context.Context, prompt *model.ComposedPrompt) (*Result, error)
	InvokeStream(ctx context.Context, prompt *model.ComposedPrompt) (<-chan string, <-chan error)
}

// NewFromConfig 按配置创建模型客户端
func NewFromConfig(cfg config.GenerationConfig) (ModelClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "anthropic":
		return NewAnthropicClient(cfg), nil
	case "gemini":
		return NewGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
}

// ============================================================================
// UTF-8 边界缓冲
// ============================================================================

// runeBuffer 按 UTF-8 边界切分流式文本
//
// 上游传输按字节切块，一个多字节字符可能被拆在两个 chunk 里。
// Push 返回当前可安全解码的前缀，把不完整的尾部字节留到下一次。
type runeBuffer struct {
	pending []byte
}

// Push 追加一个 chunk，返回可解码的完整前缀
func (b *runeBuffer) Push(chunk string) string {
	b.pending = append(b.pending, chunk...)

	// 从尾部回扫最后一个 rune 起始字节，检查其是否完整
	n := len(b.pending)
	cut := n
	for i := n - 1; i >= 0 && n-i <= utf8.UTFMax; i-- {
		if utf8.RuneStart(b.pending[i]) {
			if r, size := utf8.DecodeRune(b.pending[i:]); r == utf8.RuneError && size == 1 && n-i < utf8.UTFMax {
				cut = i
			}
			break
		}
	}

	out := string(b.pending[:cut])
	b.pending = append(b.pending[:0], b.pending[cut:]...)
	return out
}

// Flush 返回残留字节（流结束时调用，可能包含不完整字符）
func (b *runeBuffer) Flush() string {
	out := string(b.pending)
	b.pending = nil
	return out
}
