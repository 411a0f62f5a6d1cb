package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryCacheTTLExpiry 过期条目必须返回缓存缺失
func TestMemoryCacheTTLExpiry(t *testing.T) {
	cur := time.Unix(1700000000, 0)
	c := newMemoryCache(func() time.Time { return cur })
	ctx := context.Background()

	require.NoError(t, c.SetComposedPrompt(ctx, "proj-1", "你是资深编辑"))
	require.NoError(t, c.SetExecutionStatus(ctx, "exec-1", &ExecutionState{Status: "RUNNING", Progress: 40}))

	prompt, err := c.GetComposedPrompt(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "你是资深编辑", prompt)

	cur = cur.Add(TTLComposedPrompt + time.Second)
	prompt, err = c.GetComposedPrompt(ctx, "proj-1")
	require.NoError(t, err)
	assert.Empty(t, prompt, "拼装结果超过 TTL 后应当缺失")

	// 执行状态 TTL 更长，此时还没过期
	state, err := c.GetExecutionStatus(ctx, "exec-1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "RUNNING", state.Status)

	cur = cur.Add(TTLExecutionStatus)
	state, err = c.GetExecutionStatus(ctx, "exec-1")
	require.NoError(t, err)
	assert.Nil(t, state)
}

// TestMemoryCachePromptEviction 超出容量上限按 LRU 逐出最旧条目
func TestMemoryCachePromptEviction(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	for i := 0; i < maxPromptEntries+1; i++ {
		require.NoError(t, c.SetComposedPrompt(ctx, fmt.Sprintf("proj-%d", i), "prompt"))
	}

	assert.Equal(t, maxPromptEntries, c.prompts.len(), "条目数不得超过容量上限")

	oldest, err := c.GetComposedPrompt(ctx, "proj-0")
	require.NoError(t, err)
	assert.Empty(t, oldest, "最旧条目应当被逐出")

	newest, err := c.GetComposedPrompt(ctx, fmt.Sprintf("proj-%d", maxPromptEntries))
	require.NoError(t, err)
	assert.Equal(t, "prompt", newest)
}

// TestMemoryCacheEvictionRecency 最近读过的条目不在逐出顺位上
func TestMemoryCacheEvictionRecency(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	for i := 0; i < maxPromptEntries; i++ {
		require.NoError(t, c.SetComposedPrompt(ctx, fmt.Sprintf("proj-%d", i), "prompt"))
	}

	// 读一下 proj-0，把它移到队首
	_, err := c.GetComposedPrompt(ctx, "proj-0")
	require.NoError(t, err)

	require.NoError(t, c.SetComposedPrompt(ctx, "proj-extra", "prompt"))

	kept, err := c.GetComposedPrompt(ctx, "proj-0")
	require.NoError(t, err)
	assert.Equal(t, "prompt", kept)

	evicted, err := c.GetComposedPrompt(ctx, "proj-1")
	require.NoError(t, err)
	assert.Empty(t, evicted)
}

// TestMemoryCacheTouchConnection 续期必须重置连接条目的 TTL
func TestMemoryCacheTouchConnection(t *testing.T) {
	cur := time.Unix(1700000000, 0)
	c := newMemoryCache(func() time.Time { return cur })
	ctx := context.Background()

	require.NoError(t, c.RegisterConnection(ctx, &ConnectionEntry{
		SessionID: "sess-1", ProjectID: "proj-1", Instance: "api-0", CreatedAt: cur,
	}))

	cur = cur.Add(TTLConnection - time.Minute)
	require.NoError(t, c.TouchConnection(ctx, "sess-1"))

	// 距注册已超过 TTL，但续期过，条目仍在
	cur = cur.Add(TTLConnection - time.Minute)
	conn, err := c.GetConnection(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, "proj-1", conn.ProjectID)

	cur = cur.Add(TTLConnection + time.Second)
	conn, err = c.GetConnection(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, conn)
}
