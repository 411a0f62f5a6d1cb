package generation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"titlegen-admin/internal/shared/queue"
)

// WorkerConfig worker 配置
type WorkerConfig struct {
	ConsumerID      string        // 消费者标识（通常为主机名）
	Concurrency     int           // 并发消费协程数
	BlockTimeout    time.Duration // 队列阻塞读取超时
	CleanupInterval time.Duration // 过期记录清理间隔
}

// Worker 生成任务消费者
//
// 从队列领取生成任务消息，交给 Engine 执行；Execute 返回 nil
// 即 Ack（业务失败已分类落库，不重新投递）。每个消费协程独立
// 处理消息，协程之间不共享可变状态。
type Worker struct {
	engine *Engine
	queue  queue.GenerationQueue
	config WorkerConfig
}

// NewWorker 创建 worker
func NewWorker(engine *Engine, q queue.GenerationQueue, cfg WorkerConfig) *Worker {
	if cfg.ConsumerID == "" {
		cfg.ConsumerID = "worker"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	return &Worker{engine: engine, queue: q, config: cfg}
}

// Start 启动消费循环，阻塞直到 ctx 取消
func (w *Worker) Start(ctx context.Context) {
	log.Printf("[Worker] Started: consumer=%s concurrency=%d", w.config.ConsumerID, w.config.Concurrency)

	if err := w.queue.CreateConsumerGroup(ctx); err != nil {
		log.Printf("[Worker] Failed to create consumer group: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < w.config.Concurrency; i++ {
		wg.Add(1)
		consumerID := fmt.Sprintf("%s-%d", w.config.ConsumerID, i)
		go func() {
			defer wg.Done()
			w.consumeLoop(ctx, consumerID)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.cleanupLoop(ctx)
	}()

	wg.Wait()
	log.Println("[Worker] Stopped")
}

func (w *Worker) consumeLoop(ctx context.Context, consumerID string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := w.queue.ConsumeExecutions(ctx, consumerID, 1, w.config.BlockTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[Worker] Consume failed: %v", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		if len(msgs) == 0 {
			// Redis 实现依靠 blockTimeout 阻塞；内存实现立即返回，避免忙等
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, msg := range msgs {
			if err := w.engine.Execute(ctx, msg); err != nil {
				// 领取阶段的基础设施错误：不 Ack，等待重新投递
				log.Printf("[Worker] Execution %s not acked: %v", msg.ExecutionID, err)
				continue
			}
			if err := w.queue.AckExecution(ctx, msg.ID); err != nil {
				log.Printf("[Worker] Failed to ack message %s: %v", msg.ID, err)
			}
		}
	}
}

// cleanupLoop 周期清理超过保留窗口的执行记录
func (w *Worker) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := w.engine.Tracker().Cleanup(ctx)
			if err != nil {
				log.Printf("[Worker] Cleanup failed: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("[Worker] Cleaned up %d expired executions", deleted)
			}
		}
	}
}
