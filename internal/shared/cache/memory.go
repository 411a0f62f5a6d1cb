// Package cache 进程内 Cache 实现
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// 进程内缓存容量上限，超出后按 LRU 逐出
const (
	maxStatusEntries     = 4096
	maxConnectionEntries = 4096
	maxPromptEntries     = 1024
)

// ============================================================================
// lruMap - 大小受限、按 TTL 过期的 LRU 表
// ============================================================================

type lruEntry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// lruMap 不加锁，由持有方串行访问
type lruMap struct {
	max     int
	ttl     time.Duration
	ll      *list.List
	entries map[string]*list.Element
	now     func() time.Time
}

func newLRUMap(max int, ttl time.Duration, now func() time.Time) *lruMap {
	return &lruMap{
		max:     max,
		ttl:     ttl,
		ll:      list.New(),
		entries: make(map[string]*list.Element),
		now:     now,
	}
}

func (m *lruMap) set(key string, value interface{}) {
	if el, ok := m.entries[key]; ok {
		m.ll.MoveToFront(el)
		ent := el.Value.(*lruEntry)
		ent.value = value
		ent.expiresAt = m.now().Add(m.ttl)
		return
	}
	el := m.ll.PushFront(&lruEntry{key: key, value: value, expiresAt: m.now().Add(m.ttl)})
	m.entries[key] = el
	if m.ll.Len() > m.max {
		m.removeElement(m.ll.Back())
	}
}

// get 命中即置前；过期条目惰性删除
func (m *lruMap) get(key string) (interface{}, bool) {
	el, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*lruEntry)
	if m.now().After(ent.expiresAt) {
		m.removeElement(el)
		return nil, false
	}
	m.ll.MoveToFront(el)
	return ent.value, true
}

// touch 重置 TTL，条目不存在或已过期返回 false
func (m *lruMap) touch(key string) bool {
	el, ok := m.entries[key]
	if !ok {
		return false
	}
	ent := el.Value.(*lruEntry)
	if m.now().After(ent.expiresAt) {
		m.removeElement(el)
		return false
	}
	ent.expiresAt = m.now().Add(m.ttl)
	m.ll.MoveToFront(el)
	return true
}

func (m *lruMap) delete(key string) {
	if el, ok := m.entries[key]; ok {
		m.removeElement(el)
	}
}

func (m *lruMap) removeElement(el *list.Element) {
	ent := el.Value.(*lruEntry)
	m.ll.Remove(el)
	delete(m.entries, ent.key)
}

func (m *lruMap) len() int {
	return m.ll.Len()
}

// ============================================================================
// MemoryCache - 进程内 Cache 实现（测试与未配置 Redis 的部署）
// ============================================================================

// MemoryCache 进程内 Cache 实现
//
// 语义与 Redis 实现一致：TTL 与 Redis 侧相同的常量，容量受限，
// 超出按 LRU 逐出。进程退出即丢失，仅适合单进程部署。
type MemoryCache struct {
	mu          sync.Mutex
	statuses    *lruMap
	connections *lruMap
	prompts     *lruMap
}

// NewMemoryCache 创建 MemoryCache 实例
func NewMemoryCache() *MemoryCache {
	return newMemoryCache(time.Now)
}

func newMemoryCache(now func() time.Time) *MemoryCache {
	return &MemoryCache{
		statuses:    newLRUMap(maxStatusEntries, TTLExecutionStatus, now),
		connections: newLRUMap(maxConnectionEntries, TTLConnection, now),
		prompts:     newLRUMap(maxPromptEntries, TTLComposedPrompt, now),
	}
}

// Close 关闭缓存
func (c *MemoryCache) Close() error {
	return nil
}

// ExecutionStatusCache 方法

func (c *MemoryCache) SetExecutionStatus(ctx context.Context, executionID string, state *ExecutionState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *state
	c.statuses.set(executionID, &cp)
	return nil
}

func (c *MemoryCache) GetExecutionStatus(ctx context.Context, executionID string) (*ExecutionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.statuses.get(executionID)
	if !ok {
		return nil, nil // 缓存缺失不是错误
	}
	cp := *v.(*ExecutionState)
	return &cp, nil
}

func (c *MemoryCache) DeleteExecutionStatus(ctx context.Context, executionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses.delete(executionID)
	return nil
}

// ConnectionRegistry 方法

func (c *MemoryCache) RegisterConnection(ctx context.Context, conn *ConnectionEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *conn
	c.connections.set(conn.SessionID, &cp)
	return nil
}

func (c *MemoryCache) GetConnection(ctx context.Context, sessionID string) (*ConnectionEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.connections.get(sessionID)
	if !ok {
		return nil, nil
	}
	cp := *v.(*ConnectionEntry)
	return &cp, nil
}

func (c *MemoryCache) TouchConnection(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connections.touch(sessionID)
	return nil
}

func (c *MemoryCache) UnregisterConnection(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connections.delete(sessionID)
	return nil
}

// PromptCache 方法

func (c *MemoryCache) SetComposedPrompt(ctx context.Context, projectID, prompt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts.set(projectID, prompt)
	return nil
}

func (c *MemoryCache) GetComposedPrompt(ctx context.Context, projectID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.prompts.get(projectID)
	if !ok {
		return "", nil
	}
	return v.(string), nil
}

func (c *MemoryCache) InvalidateComposedPrompt(ctx context.Context, projectID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts.delete(projectID)
	return nil
}

var _ Cache = (*MemoryCache)(nil)
