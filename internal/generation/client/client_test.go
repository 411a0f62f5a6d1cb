package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titlegen-admin/internal/config"
	"titlegen-admin/internal/shared/model"
)

func testPrompt() *model.ComposedPrompt {
	return &model.ComposedPrompt{
		System: "system prompt",
		Turns: []model.ConversationTurn{
			{Role: model.RoleUser, Content: "article body"},
		},
	}
}

func newTestClient(baseURL string) *AnthropicClient {
	c := NewAnthropicClient(config.GenerationConfig{
		APIKey:          "test-key",
		ModelID:         "claude-sonnet-4-20250514",
		MaxOutputTokens: 512,
		MaxRetries:      2,
		RequestTimeout:  5 * time.Second,
	})
	c.baseURL = baseURL
	c.backoff = time.Millisecond
	return c
}

func TestAnthropicInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		fmt.Fprint(w, `{
			"content": [{"type": "text", "text": "标题一\n标题二"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 120, "output_tokens": 30}
		}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.Invoke(context.Background(), testPrompt())
	require.NoError(t, err)
	assert.Equal(t, "标题一\n标题二", result.Text)
	assert.Equal(t, 120, result.Usage.InputTokens)
	assert.Equal(t, 30, result.Usage.OutputTokens)
}

func TestAnthropicInvokeRetriesTransient(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"content": [{"type": "text", "text": "ok"}], "usage": {"input_tokens": 1, "output_tokens": 1}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.Invoke(context.Background(), testPrompt())
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAnthropicInvokeNoRetryOnValidation(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"type": "invalid_request_error", "message": "max_tokens required"}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Invoke(context.Background(), testPrompt())
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidArgument(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "validation errors must not be retried")
}

func TestAnthropicInvokeRetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Invoke(context.Background(), testPrompt())
	require.Error(t, err)
	assert.True(t, errdefs.IsUnavailable(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls)) // 1 + 2 retries
}

func TestAnthropicInvokeStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\n")
		fmt.Fprint(w, "data: {\"type\": \"message_start\"}\n\n")
		fmt.Fprint(w, "data: {\"type\": \"content_block_delta\", \"delta\": {\"type\": \"text_delta\", \"text\": \"标题\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\": \"content_block_delta\", \"delta\": {\"type\": \"text_delta\", \"text\": \"生成\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\": \"message_stop\"}\n\n")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	contentChan, errorChan := c.InvokeStream(context.Background(), testPrompt())

	var full strings.Builder
	for chunk := range contentChan {
		full.WriteString(chunk)
	}
	require.NoError(t, <-errorChan)
	assert.Equal(t, "标题生成", full.String())
}

func TestAnthropicInvokeStreamAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\": \"error\", \"error\": {\"type\": \"overloaded_error\", \"message\": \"overloaded\"}}\n\n")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	contentChan, errorChan := c.InvokeStream(context.Background(), testPrompt())
	for range contentChan {
	}
	err := <-errorChan
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestGuardrailClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"type": "invalid_request_error", "message": "blocked by content filtering policy"}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Invoke(context.Background(), testPrompt())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGuardrail)
}

func TestRuneBufferSplitUTF8(t *testing.T) {
	// "标" = e6 a0 87，拆成两个 chunk 推入
	raw := []byte("标题")
	var buf runeBuffer

	out1 := buf.Push(string(raw[:4])) // "标" + "题" 的第一个字节
	out2 := buf.Push(string(raw[4:]))

	assert.Equal(t, "标", out1)
	assert.Equal(t, "题", out2)
	assert.Equal(t, "", buf.Flush())
}

func TestRuneBufferCompleteChunks(t *testing.T) {
	var buf runeBuffer
	assert.Equal(t, "hello", buf.Push("hello"))
	assert.Equal(t, "世界", buf.Push("世界"))
	assert.Equal(t, "", buf.Flush())
}

func TestNewFromConfig(t *testing.T) {
	c, err := NewFromConfig(config.GenerationConfig{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)

	_, err = NewFromConfig(config.GenerationConfig{Provider: "bedrock"})
	assert.Error(t, err)
}
