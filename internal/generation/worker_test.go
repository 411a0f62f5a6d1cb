package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"titlegen-admin/internal/generation/client"
	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/queue"
)

// worker 的消费协程必须随 ctx 取消全部退出
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func TestWorkerConsumesAndAcks(t *testing.T) {
	mc := &client.MockClient{Response: "title", Usage: model.Usage{InputTokens: 5, OutputTokens: 2}}
	f := newEngineFixture(mc)
	q := queue.NewMemoryQueue()
	ctx := context.Background()

	msg := f.submitMessage(t, "exec-1")
	_, err := q.EnqueueExecution(ctx, msg)
	require.NoError(t, err)

	w := NewWorker(f.engine, q, WorkerConfig{
		ConsumerID:   "test",
		Concurrency:  2,
		BlockTimeout: 10 * time.Millisecond,
	})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		w.Start(runCtx)
		close(done)
	}()

	// 等待执行完成
	require.Eventually(t, func() bool {
		exec, err := f.store.GetExecution(ctx, "exec-1")
		return err == nil && exec.Status == model.ExecutionStatusSucceeded
	}, 3*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		pending, _ := q.GetPendingCount(ctx)
		return pending == 0
	}, time.Second, 10*time.Millisecond, "message must be acked after execution")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}

func TestWorkerAcksClassifiedFailures(t *testing.T) {
	mc := &client.MockClient{Err: client.ErrGuardrail}
	f := newEngineFixture(mc)
	q := queue.NewMemoryQueue()
	ctx := context.Background()

	msg := f.submitMessage(t, "exec-1")
	_, err := q.EnqueueExecution(ctx, msg)
	require.NoError(t, err)

	w := NewWorker(f.engine, q, WorkerConfig{ConsumerID: "test", Concurrency: 1, BlockTimeout: 10 * time.Millisecond})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go w.Start(runCtx)

	// 业务失败也要 Ack：错误已分类落库，不应反复重试
	require.Eventually(t, func() bool {
		exec, err := f.store.GetExecution(ctx, "exec-1")
		if err != nil || exec.Status != model.ExecutionStatusFailed {
			return false
		}
		pending, _ := q.GetPendingCount(ctx)
		return pending == 0
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, f.client.Invocations())
}

func TestWorkerConfigDefaults(t *testing.T) {
	w := NewWorker(nil, queue.NewNoOpQueue(), WorkerConfig{})
	assert.Equal(t, "worker", w.config.ConsumerID)
	assert.Equal(t, 4, w.config.Concurrency)
	assert.Equal(t, 5*time.Second, w.config.BlockTimeout)
	assert.Equal(t, time.Hour, w.config.CleanupInterval)
}
