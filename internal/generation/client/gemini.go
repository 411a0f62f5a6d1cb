package client

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
	"google.golang.org/genai"

	"titlegen-admin/internal/config"
	"titlegen-admin/internal/shared/model"
)

// GeminiClient Google Gemini API 适配器（官方 genai SDK）
type GeminiClient struct {
	client          *genai.Client
	modelID         string
	maxOutputTokens int32
}

// NewGeminiClient 创建 Gemini 客户端
func NewGeminiClient(cfg config.GenerationConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured: %w", errdefs.ErrInvalidArgument)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{
		client:          client,
		modelID:         cfg.ModelID,
		maxOutputTokens: int32(cfg.MaxOutputTokens),
	}, nil
}

func (c *GeminiClient) buildContents(prompt *model.ComposedPrompt) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(prompt.Turns))
	for _, t := range prompt.Turns {
		role := genai.RoleUser
		if t.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, genai.Role(role)))
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: c.maxOutputTokens,
	}
	if prompt.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		}
	}
	return contents, cfg
}

// checkSafety 检查响应是否被安全策略拦截
func checkSafety(resp *genai.GenerateContentResponse) error {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("prompt blocked (%s): %w", resp.PromptFeedback.BlockReason, ErrGuardrail)
	}
	for _, cand := range resp.Candidates {
		if cand.FinishReason == genai.FinishReasonSafety {
			return fmt.Errorf("response blocked by safety filter: %w", ErrGuardrail)
		}
	}
	return nil
}

// Invoke 阻塞调用，返回完整文本与用量
//
// 重试由 SDK 自身的传输层处理，适配器不再叠加退避。
func (c *GeminiClient) Invoke(ctx context.Context, prompt *model.ComposedPrompt) (*Result, error) {
	contents, cfg := c.buildContents(prompt)

	resp, err := c.client.Models.GenerateContent(ctx, c.modelID, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("model invocation failed: %w", err)
	}
	if err := checkSafety(resp); err != nil {
		return nil, err
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("no completion returned")
	}

	result := &Result{Text: text}
	if resp.UsageMetadata != nil {
		result.Usage = model.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return result, nil
}

// InvokeStream 流式调用
//
// SDK 返回的增量保证是合法 UTF-8 字符串，无需再做边界缓冲。
func (c *GeminiClient) InvokeStream(ctx context.Context, prompt *model.ComposedPrompt) (<-chan string, <-chan error) {
	contentChan := make(chan string, 100)
	errorChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errorChan)

		contents, cfg := c.buildContents(prompt)
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.modelID, contents, cfg) {
			if err != nil {
				errorChan <- fmt.Errorf("stream error: %w", err)
				return
			}
			if err := checkSafety(resp); err != nil {
				errorChan <- err
				return
			}
			if chunk := resp.Text(); chunk != "" {
				select {
				case contentChan <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return contentChan, errorChan
}
