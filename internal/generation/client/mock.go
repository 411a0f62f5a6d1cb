package client

import (
	"context"
	"sync"

	"titlegen-admin/internal/shared/model"
)

// MockClient 测试用模型客户端
//
// 固定返回 Response/Chunks，Err 非空时两种调用都失败。
type MockClient struct {
	Response string
	Usage    model.Usage
	Chunks   []string
	Err      error

	mu         sync.Mutex
	lastPrompt *model.ComposedPrompt
	invokes    int
}

var _ ModelClient = (*MockClient)(nil)

// Invoke 阻塞调用
func (m *MockClient) Invoke(_ context.Context, prompt *model.ComposedPrompt) (*Result, error) {
	m.mu.Lock()
	m.lastPrompt = prompt
	m.invokes++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return &Result{Text: m.Response, Usage: m.Usage}, nil
}

// InvokeStream 流式调用，逐条推送 Chunks
func (m *MockClient) InvokeStream(ctx context.Context, prompt *model.ComposedPrompt) (<-chan string, <-chan error) {
	m.mu.Lock()
	m.lastPrompt = prompt
	m.invokes++
	m.mu.Unlock()

	contentChan := make(chan string, len(m.Chunks)+1)
	errorChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errorChan)

		if m.Err != nil {
			errorChan <- m.Err
			return
		}
		for _, chunk := range m.Chunks {
			select {
			case contentChan <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return contentChan, errorChan
}

// LastPrompt 返回最近一次调用的输入
func (m *MockClient) LastPrompt() *model.ComposedPrompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// Invocations 返回累计调用次数
func (m *MockClient) Invocations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invokes
}
