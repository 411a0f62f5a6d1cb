// Package eventbus 事件总线 mock 实现
package eventbus

import (
	"context"
	"fmt"
	"sync"
)

// ============================================================================
// NoOpEventBus - 空操作的 EventBus 实现（用于测试）
// ============================================================================

// NoOpEventBus 是一个不做任何操作的 EventBus 实现
type NoOpEventBus struct{}

// NewNoOpEventBus 创建 NoOpEventBus 实例
func NewNoOpEventBus() *NoOpEventBus {
	return &NoOpEventBus{}
}

// Close 关闭事件总线
func (e *NoOpEventBus) Close() error {
	return nil
}

// GenerationEventBus 方法

func (e *NoOpEventBus) PublishGenerationEvent(ctx context.Context, sessionID string, event *GenerationEvent) error {
	return nil
}
func (e *NoOpEventBus) GetGenerationEvents(ctx context.Context, sessionID string, fromID string, count int64) ([]*GenerationEvent, error) {
	return []*GenerationEvent{}, nil
}
func (e *NoOpEventBus) GetGenerationEventCount(ctx context.Context, sessionID string) (int64, error) {
	return 0, nil
}
func (e *NoOpEventBus) SubscribeGenerationEvents(ctx context.Context, sessionID string) (<-chan *GenerationEvent, error) {
	ch := make(chan *GenerationEvent)
	close(ch)
	return ch, nil
}
func (e *NoOpEventBus) DeleteGenerationEvents(ctx context.Context, sessionID string) error {
	return nil
}

// 确保 NoOpEventBus 实现了 EventBus 接口
var _ EventBus = (*NoOpEventBus)(nil)

// ============================================================================
// MemoryEventBus - 内存 EventBus 实现（用于测试）
// ============================================================================

// MemoryEventBus 进程内事件总线
//
// 按会话保序存储事件并实时分发给订阅者，语义与 Redis Streams
// 实现一致（订阅只收到订阅之后发布的事件）。
type MemoryEventBus struct {
	mu     sync.Mutex
	events map[string][]*GenerationEvent
	subs   map[string][]chan *GenerationEvent
	nextID int64
}

// NewMemoryEventBus 创建 MemoryEventBus 实例
func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{
		events: make(map[string][]*GenerationEvent),
		subs:   make(map[string][]chan *GenerationEvent),
	}
}

// Close 关闭事件总线
func (b *MemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sessionID, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
		delete(b.subs, sessionID)
	}
	return nil
}

func (b *MemoryEventBus) PublishGenerationEvent(ctx context.Context, sessionID string, event *GenerationEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	event.ID = fmt.Sprintf("%d-0", b.nextID)
	event.SessionID = sessionID
	b.events[sessionID] = append(b.events[sessionID], event)

	for _, ch := range b.subs[sessionID] {
		select {
		case ch <- event:
		default: // 订阅者跟不上时丢弃，与测试无关的会话不会阻塞发布
		}
	}
	return nil
}

func (b *MemoryEventBus) GetGenerationEvents(ctx context.Context, sessionID string, fromID string, count int64) ([]*GenerationEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.events[sessionID]
	out := make([]*GenerationEvent, 0, len(events))
	for _, e := range events {
		if fromID != "" && fromID != "-" && e.ID <= fromID {
			continue
		}
		out = append(out, e)
		if count > 0 && int64(len(out)) >= count {
			break
		}
	}
	return out, nil
}

func (b *MemoryEventBus) GetGenerationEventCount(ctx context.Context, sessionID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.events[sessionID])), nil
}

func (b *MemoryEventBus) SubscribeGenerationEvents(ctx context.Context, sessionID string) (<-chan *GenerationEvent, error) {
	ch := make(chan *GenerationEvent, 256)
	b.mu.Lock()
	b.subs[sessionID] = append(b.subs[sessionID], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[sessionID]
		for i, c := range chans {
			if c == ch {
				b.subs[sessionID] = append(chans[:i], chans[i+1:]...)
				close(ch)
				break
			}
		}
	}()
	return ch, nil
}

func (b *MemoryEventBus) DeleteGenerationEvents(ctx context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, sessionID)
	return nil
}

// 确保 MemoryEventBus 实现了 EventBus 接口
var _ EventBus = (*MemoryEventBus)(nil)
