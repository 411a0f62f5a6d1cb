// Package main API Server 入口
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"titlegen-admin/internal/apiserver/auth"
	"titlegen-admin/internal/apiserver/server"
	"titlegen-admin/internal/config"
	"titlegen-admin/internal/shared/infra"
)

func main() {
	// 加载配置（自动加载 .env，根据 APP_ENV 切换数据库和 Redis）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	// 初始化持久化存储（PostgreSQL / SQLite / MongoDB）
	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	log.Printf("Connected to database [driver=%s]", cfg.DatabaseDriver)

	// 初始化运行时基础设施（缓存、事件总线、消息队列）
	inf, err := newInfra(cfg, store)
	if err != nil {
		log.Fatalf("Failed to initialize infrastructure: %v", err)
	}
	defer inf.Close()

	// 初始化生成引擎（chat 同步路径与 WebSocket 流式路径使用）
	engine, err := newEngine(cfg, inf)
	if err != nil {
		log.Fatalf("Failed to initialize generation engine: %v", err)
	}

	// 认证配置与管理员引导
	authCfg := buildAuthConfig(cfg.Auth)
	if !authCfg.Enabled() {
		log.Println("WARNING: JWT_SECRET not set, authentication is DISABLED")
	}
	if err := auth.EnsureAdminUser(store, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("Failed to ensure admin user: %v", err)
	}

	h := server.NewHandler(inf, engine, authCfg, cfg.Generation)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reportQueueDepth(ctx, inf, h.GetMetrics())

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}

// reportQueueDepth 周期采样生成队列深度到指标
func reportQueueDepth(ctx context.Context, inf *infra.Infrastructure, metrics *server.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := inf.Queue.GetQueueLength(ctx)
			if err != nil {
				continue
			}
			metrics.SetQueueDepth(depth)
		}
	}
}
