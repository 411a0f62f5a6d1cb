// Package infra Redis 基础设施初始化
package infra

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"titlegen-admin/internal/shared/cache"
	cacheredis "titlegen-admin/internal/shared/cache/redis"
	"titlegen-admin/internal/shared/eventbus"
	eventbusredis "titlegen-admin/internal/shared/eventbus/redis"
	"titlegen-admin/internal/shared/queue"
	queueredis "titlegen-admin/internal/shared/queue/redis"
)

// RedisInfra Redis 基础设施
//
// 组合 Cache、EventBus、Queue 三个组件，共享同一个底层连接。
type RedisInfra struct {
	// 组件（显式命名避免冲突）
	cacheStore    *cacheredis.Store
	eventBusStore *eventbusredis.Store
	queueStore    *queueredis.Store

	// 底层连接
	client *redis.Client
}

// NewRedisInfra 从 URL 创建 Redis 基础设施
func NewRedisInfra(redisURL string) (*RedisInfra, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[Redis/Infra] Connected to %s", opts.Addr)

	return &RedisInfra{
		client:        client,
		cacheStore:    cacheredis.NewStoreFromClient(client),
		eventBusStore: eventbusredis.NewStoreFromClient(client),
		queueStore:    queueredis.NewStoreFromClient(client),
	}, nil
}

// NewRedisInfraFromAddr 从地址创建 Redis 基础设施
func NewRedisInfraFromAddr(addr, password string, db int) (*RedisInfra, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[Redis/Infra] Connected to %s", addr)

	return &RedisInfra{
		client:        client,
		cacheStore:    cacheredis.NewStoreFromClient(client),
		eventBusStore: eventbusredis.NewStoreFromClient(client),
		queueStore:    queueredis.NewStoreFromClient(client),
	}, nil
}

// Cache 返回缓存组件接口
func (r *RedisInfra) Cache() cache.Cache {
	return r
}

// EventBus 返回事件总线组件接口
func (r *RedisInfra) EventBus() eventbus.EventBus {
	return r
}

// Queue 返回消息队列组件接口
func (r *RedisInfra) Queue() queue.Queue {
	return r
}

// Client 返回底层 Redis 客户端
func (r *RedisInfra) Client() *redis.Client {
	return r.client
}

// Close 关闭 Redis 连接
func (r *RedisInfra) Close() error {
	return r.client.Close()
}

// ============================================================================
// cache.Cache 接口委托实现
// ============================================================================

func (r *RedisInfra) SetExecutionStatus(ctx context.Context, executionID string, state *cache.ExecutionState) error {
	return r.cacheStore.SetExecutionStatus(ctx, executionID, state)
}
func (r *RedisInfra) GetExecutionStatus(ctx context.Context, executionID string) (*cache.ExecutionState, error) {
	return r.cacheStore.GetExecutionStatus(ctx, executionID)
}
func (r *RedisInfra) DeleteExecutionStatus(ctx context.Context, executionID string) error {
	return r.cacheStore.DeleteExecutionStatus(ctx, executionID)
}
func (r *RedisInfra) RegisterConnection(ctx context.Context, conn *cache.ConnectionEntry) error {
	return r.cacheStore.RegisterConnection(ctx, conn)
}
func (r *RedisInfra) GetConnection(ctx context.Context, sessionID string) (*cache.ConnectionEntry, error) {
	return r.cacheStore.GetConnection(ctx, sessionID)
}
func (r *RedisInfra) TouchConnection(ctx context.Context, sessionID string) error {
	return r.cacheStore.TouchConnection(ctx, sessionID)
}
func (r *RedisInfra) UnregisterConnection(ctx context.Context, sessionID string) error {
	return r.cacheStore.UnregisterConnection(ctx, sessionID)
}
func (r *RedisInfra) SetComposedPrompt(ctx context.Context, projectID, prompt string) error {
	return r.cacheStore.SetComposedPrompt(ctx, projectID, prompt)
}
func (r *RedisInfra) GetComposedPrompt(ctx context.Context, projectID string) (string, error) {
	return r.cacheStore.GetComposedPrompt(ctx, projectID)
}
func (r *RedisInfra) InvalidateComposedPrompt(ctx context.Context, projectID string) error {
	return r.cacheStore.InvalidateComposedPrompt(ctx, projectID)
}

// ============================================================================
// eventbus.EventBus 接口委托实现
// ============================================================================

func (r *RedisInfra) PublishGenerationEvent(ctx context.Context, sessionID string, event *eventbus.GenerationEvent) error {
	return r.eventBusStore.PublishGenerationEvent(ctx, sessionID, event)
}
func (r *RedisInfra) GetGenerationEvents(ctx context.Context, sessionID string, fromID string, count int64) ([]*eventbus.GenerationEvent, error) {
	return r.eventBusStore.GetGenerationEvents(ctx, sessionID, fromID, count)
}
func (r *RedisInfra) GetGenerationEventCount(ctx context.Context, sessionID string) (int64, error) {
	return r.eventBusStore.GetGenerationEventCount(ctx, sessionID)
}
func (r *RedisInfra) SubscribeGenerationEvents(ctx context.Context, sessionID string) (<-chan *eventbus.GenerationEvent, error) {
	return r.eventBusStore.SubscribeGenerationEvents(ctx, sessionID)
}
func (r *RedisInfra) DeleteGenerationEvents(ctx context.Context, sessionID string) error {
	return r.eventBusStore.DeleteGenerationEvents(ctx, sessionID)
}

// ============================================================================
// queue.Queue 接口委托实现
// ============================================================================

func (r *RedisInfra) EnqueueExecution(ctx context.Context, msg *queue.GenerationMessage) (string, error) {
	return r.queueStore.EnqueueExecution(ctx, msg)
}
func (r *RedisInfra) CreateConsumerGroup(ctx context.Context) error {
	return r.queueStore.CreateConsumerGroup(ctx)
}
func (r *RedisInfra) ConsumeExecutions(ctx context.Context, consumerID string, count int64, blockTimeout time.Duration) ([]*queue.GenerationMessage, error) {
	return r.queueStore.ConsumeExecutions(ctx, consumerID, count, blockTimeout)
}
func (r *RedisInfra) AckExecution(ctx context.Context, messageID string) error {
	return r.queueStore.AckExecution(ctx, messageID)
}
func (r *RedisInfra) GetQueueLength(ctx context.Context) (int64, error) {
	return r.queueStore.GetQueueLength(ctx)
}
func (r *RedisInfra) GetPendingCount(ctx context.Context) (int64, error) {
	return r.queueStore.GetPendingCount(ctx)
}

// 确保 RedisInfra 实现了各组件接口
var (
	_ cache.Cache       = (*RedisInfra)(nil)
	_ eventbus.EventBus = (*RedisInfra)(nil)
	_ queue.Queue       = (*RedisInfra)(nil)
)
