// Package main 生成 Worker 入口
//
// 从生成队列消费任务消息，驱动 Engine 执行完整生成管线。
// 与 API Server 共用同一 YAML 配置与基础设施。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"titlegen-admin/internal/config"
	"titlegen-admin/internal/generation"
	"titlegen-admin/internal/generation/client"
	"titlegen-admin/internal/generation/composer"
	"titlegen-admin/internal/generation/tracker"
	"titlegen-admin/internal/shared/infra"
	"titlegen-admin/internal/shared/notify"
	"titlegen-admin/internal/shared/objstore"
	"titlegen-admin/internal/shared/storage"
	"titlegen-admin/internal/shared/storage/dbutil"
	storagefactory "titlegen-admin/internal/shared/storage/factory"
)

func main() {
	cfg := config.Load()

	log.Printf("Starting Worker... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	log.Printf("Connected to database [driver=%s]", cfg.DatabaseDriver)

	// Worker 必须走 Redis：队列与事件总线要跨进程到达 API Server
	redisInfra, err := infra.NewRedisInfra(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisInfra.Close()
	log.Println("Connected to Redis")

	engine, err := newEngine(cfg, store, redisInfra)
	if err != nil {
		log.Fatalf("Failed to initialize generation engine: %v", err)
	}

	hostname, _ := os.Hostname()
	worker := generation.NewWorker(engine, redisInfra.Queue(), generation.WorkerConfig{
		ConsumerID:  hostname,
		Concurrency: cfg.Generation.WorkerCount,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	worker.Start(ctx)
}

// newStore 按配置的驱动创建持久化存储
func newStore(cfg *config.Config) (storage.PersistentStore, error) {
	if cfg.DatabaseDriver == "mongodb" {
		return storagefactory.NewMongoStore(cfg.DatabaseURL, cfg.DatabaseDBName)
	}
	return storagefactory.NewPersistentStoreFromDSN(dbutil.DriverType(cfg.DatabaseDriver), cfg.DatabaseURL)
}

// newEngine 创建生成引擎及其全部依赖
func newEngine(cfg *config.Config, store storage.PersistentStore, redisInfra *infra.RedisInfra) (*generation.Engine, error) {
	modelClient, err := client.NewFromConfig(cfg.Generation)
	if err != nil {
		return nil, err
	}

	archive, err := newArchive(cfg)
	if err != nil {
		return nil, err
	}

	var notifier notify.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL)
	}

	return generation.NewEngine(generation.Deps{
		Store:    store,
		Tracker:  tracker.New(store, redisInfra.Cache(), cfg.Generation.Retention),
		Composer: composer.New(cfg.Generation.TokenBudget),
		Client:   modelClient,
		Events:   redisInfra.EventBus(),
		Prompts:  redisInfra.Cache(),
		Notifier: notifier,
		Archive:  archive,
	}), nil
}

// newArchive 创建文章归档存取
//
// Worker 与 API Server 必须指向同一 MinIO，否则取不到归档的文章。
func newArchive(cfg *config.Config) (generation.ArticleArchive, error) {
	if cfg.MinIO.AccessKey == "" {
		log.Println("WARNING: MinIO not configured, using in-process article archive")
		return objstore.NewMemoryArchive(), nil
	}

	archive, err := objstore.NewClient(cfg.MinIO)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}
