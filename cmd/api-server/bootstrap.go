package main

import (
	"context"
	"log"
	"time"

	"titlegen-admin/internal/apiserver/auth"
	"titlegen-admin/internal/config"
	"titlegen-admin/internal/generation"
	"titlegen-admin/internal/generation/client"
	"titlegen-admin/internal/generation/composer"
	"titlegen-admin/internal/generation/tracker"
	"titlegen-admin/internal/shared/cache"
	"titlegen-admin/internal/shared/eventbus"
	"titlegen-admin/internal/shared/infra"
	"titlegen-admin/internal/shared/notify"
	"titlegen-admin/internal/shared/objstore"
	"titlegen-admin/internal/shared/queue"
	"titlegen-admin/internal/shared/storage"
	"titlegen-admin/internal/shared/storage/dbutil"
	storagefactory "titlegen-admin/internal/shared/storage/factory"
)

// newStore 按配置的驱动创建持久化存储
func newStore(cfg *config.Config) (storage.PersistentStore, error) {
	if cfg.DatabaseDriver == "mongodb" {
		return storagefactory.NewMongoStore(cfg.DatabaseURL, cfg.DatabaseDBName)
	}
	return storagefactory.NewPersistentStoreFromDSN(dbutil.DriverType(cfg.DatabaseDriver), cfg.DatabaseURL)
}

// newInfra 创建运行时基础设施
//
// 配置了 Redis 时缓存/事件总线/队列全部走 Redis；未配置时退化为
// 进程内实现（仅适合单进程开发，跨进程事件和队列不可用）。
func newInfra(cfg *config.Config, store storage.PersistentStore) (*infra.Infrastructure, error) {
	if cfg.RedisURL == "" {
		log.Println("WARNING: Redis not configured, using in-process cache/eventbus/queue")
		return &infra.Infrastructure{
			Storage:  store,
			Cache:    cache.NewMemoryCache(),
			EventBus: eventbus.NewMemoryEventBus(),
			Queue:    queue.NewMemoryQueue(),
		}, nil
	}

	redisInfra, err := infra.NewRedisInfra(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return &infra.Infrastructure{
		Storage:  store,
		Cache:    redisInfra,
		EventBus: redisInfra,
		Queue:    redisInfra,
	}, nil
}

// newEngine 创建生成引擎及其全部依赖
func newEngine(cfg *config.Config, inf *infra.Infrastructure) (*generation.Engine, error) {
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
		Store:    inf.Storage,
		Tracker:  tracker.New(inf.Storage, inf.Cache, cfg.Generation.Retention),
		Composer: composer.New(cfg.Generation.TokenBudget),
		Client:   modelClient,
		Events:   inf.EventBus,
		Prompts:  inf.Cache,
		Notifier: notifier,
		Archive:  archive,
	}), nil
}

// newArchive 创建文章归档存取（MinIO 未配置时用进程内实现）
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

// buildAuthConfig 从配置文件的字符串 TTL 构建认证配置
func buildAuthConfig(ac config.AuthConfig) auth.Config {
	cfg := auth.DefaultConfig()
	cfg.JWTSecret = ac.JWTSecret
	if d, err := time.ParseDuration(ac.AccessTokenTTL); err == nil && d > 0 {
		cfg.AccessTokenTTL = d
	}
	if d, err := time.ParseDuration(ac.RefreshTokenTTL); err == nil && d > 0 {
		cfg.RefreshTokenTTL = d
	}
	return cfg
}
