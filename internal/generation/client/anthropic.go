package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/containerd/errdefs"

	"titlegen-admin/internal/config"
	"titlegen-admin/internal/shared/model"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// AnthropicClient Anthropic Messages API 适配器
type AnthropicClient struct {
	apiKey          string
	baseURL         string
	modelID         string
	maxOutputTokens int
	maxRetries      int
	backoff         time.Duration
	httpClient      *http.Client
}

// NewAnthropicClient 创建 Anthropic 客户端
func NewAnthropicClient(cfg config.GenerationConfig) *AnthropicClient {
	return &AnthropicClient{
		apiKey:          cfg.APIKey,
		baseURL:         anthropicBaseURL,
		modelID:         cfg.ModelID,
		maxOutputTokens: cfg.MaxOutputTokens,
		maxRetries:      cfg.MaxRetries,
		backoff:         time.Second,
		httpClient:      &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// ============================================================================
// 请求/响应结构
// ============================================================================

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) buildRequest(prompt *model.ComposedPrompt, stream bool) anthropicRequest {
	messages := make([]anthropicMessage, 0, len(prompt.Turns))
	for _, t := range prompt.Turns {
		messages = append(messages, anthropicMessage{Role: string(t.Role), Content: t.Content})
	}
	return anthropicRequest{
		Model:     c.modelID,
		MaxTokens: c.maxOutputTokens,
		System:    prompt.System,
		Messages:  messages,
		Stream:    stream,
	}
}

// classifyStatus 把 HTTP 状态码映射为带分类哨兵的错误
func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("rate limit exceeded (429): %w", errdefs.ErrResourceExhausted)
	case status == http.StatusBadRequest:
		if strings.Contains(body, "content") && strings.Contains(body, "polic") {
			return fmt.Errorf("request rejected: %s: %w", body, ErrGuardrail)
		}
		return fmt.Errorf("invalid request (400): %s: %w", body, errdefs.ErrInvalidArgument)
	case status == http.StatusUnauthorized:
		return fmt.Errorf("authentication failed (401): %w", errdefs.ErrUnauthenticated)
	case status == http.StatusForbidden:
		return fmt.Errorf("permission denied (403): %w", errdefs.ErrPermissionDenied)
	case status >= 500:
		return fmt.Errorf("upstream error (%d): %s: %w", status, body, errdefs.ErrUnavailable)
	default:
		return fmt.Errorf("API request failed with status %d: %s", status, body)
	}
}

// isTransient 判断错误是否可重试（限流 / 上游 5xx / 网络错误）
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errdefs.IsResourceExhausted(err) || errdefs.IsUnavailable(err) {
		return true
	}
	// 分类失败的网络层错误（连接重置等）也按瞬时处理
	return !errdefs.IsInvalidArgument(err) && !errdefs.IsUnauthorized(err) &&
		!errdefs.IsPermissionDenied(err) && !errors.Is(err, ErrGuardrail) && isNetworkError(err)
}

func isNetworkError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection") || strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "request failed")
}

// ============================================================================
// 阻塞调用
// ============================================================================

// Invoke 阻塞调用，返回完整文本与用量
//
// 瞬时错误（限流/5xx/网络）按指数退避重试，最多 maxRetries 次；
// 校验类与安全策略类错误立即返回，不重试。
func (c *AnthropicClient) Invoke(ctx context.Context, prompt *model.ComposedPrompt) (*Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured: %w", errdefs.ErrInvalidArgument)
	}

	jsonData, err := json.Marshal(c.buildRequest(prompt, false))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(i-1)) * c.backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("model invocation cancelled: %w", ctx.Err())
			}
		}

		result, err := c.doInvoke(ctx, jsonData)
		if err == nil {
			return result, nil
		}
		if !isTransient(err) {
			return nil, fmt.Errorf("model invocation failed: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("model invocation failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *AnthropicClient) doInvoke(ctx context.Context, jsonData []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, string(body))
	}

	var ar anthropicResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if ar.Error != nil {
		return nil, fmt.Errorf("API error: %s", ar.Error.Message)
	}
	if len(ar.Content) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	var text strings.Builder
	for _, block := range ar.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Result{
		Text: strings.TrimSpace(text.String()),
		Usage: model.Usage{
			InputTokens:  ar.Usage.InputTokens,
			OutputTokens: ar.Usage.OutputTokens,
		},
	}, nil
}

// ============================================================================
// 流式调用
// ============================================================================

// InvokeStream 流式调用，通过 SSE 推送增量文本
//
// 内容通道关闭即流结束；错误通道最多产生一个错误。
// 增量按 UTF-8 边界切分后转发（见 runeBuffer）。
func (c *AnthropicClient) InvokeStream(ctx context.Context, prompt *model.ComposedPrompt) (<-chan string, <-chan error) {
	contentChan := make(chan string, 100)
	errorChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errorChan)

		if c.apiKey == "" {
			errorChan <- fmt.Errorf("anthropic API key not configured: %w", errdefs.ErrInvalidArgument)
			return
		}

		jsonData, err := json.Marshal(c.buildRequest(prompt, true))
		if err != nil {
			errorChan <- fmt.Errorf("failed to marshal request: %w", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonData))
		if err != nil {
			errorChan <- fmt.Errorf("failed to create request: %w", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			errorChan <- fmt.Errorf("request failed: %w", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errorChan <- classifyStatus(resp.StatusCode, string(body))
			return
		}

		var buf runeBuffer
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" || data == "[DONE]" {
				continue
			}

			var evt struct {
				Type  string `json:"type"`
				Delta *struct {
					Type string `json:"type"`
					Text string `json:"text,omitempty"`
				} `json:"delta,omitempty"`
				Error *struct {
					Type    string `json:"type"`
					Message string `json:"message"`
				} `json:"error,omitempty"`
			}
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				continue
			}
			if evt.Error != nil {
				errorChan <- fmt.Errorf("API error: %s", evt.Error.Message)
				return
			}
			if evt.Type == "content_block_delta" && evt.Delta != nil && evt.Delta.Text != "" {
				if out := buf.Push(evt.Delta.Text); out != "" {
					select {
					case contentChan <- out:
					case <-ctx.Done():
						return
					}
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errorChan <- fmt.Errorf("stream error: %w", err)
			return
		}
		if tail := buf.Flush(); tail != "" {
			select {
			case contentChan <- tail:
			case <-ctx.Done():
			}
		}
	}()

	return contentChan, errorChan
}
