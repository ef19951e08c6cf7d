package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-ai-gateway/internal/api"
	"recipe-ai-gateway/internal/api/middleware"
	"recipe-ai-gateway/internal/infrastructure/config"
	"recipe-ai-gateway/internal/infrastructure/persistence"
	"recipe-ai-gateway/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// 載入設定（.env 可選）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogFile, cfg.App.Name); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.Bool("gateway_credential", cfg.HasGatewayCredential()),
		zap.Bool("webhook", cfg.HasWebhook()),
		zap.Bool("store_enabled", cfg.Store.Enabled),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	deps := api.Dependencies{Dedup: middleware.NewMemoryDedupStore()}

	// 初始化食譜保存
	if cfg.Store.Enabled {
		store, err := persistence.Open(cfg.Store.Driver, cfg.Store.DSN, cfg.App.Debug)
		if err != nil {
			common.LogFatal("Failed to open recipe store", zap.Error(err))
		}
		defer store.Close()
		deps.Store = store
	}

	// 多實例部署時以 Redis 去重
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			common.LogWarn("Redis 無法連線，改用記憶體去重", zap.Error(err))
			_ = client.Close()
		} else {
			defer client.Close()
			deps.Dedup = middleware.NewRedisDedupStore(client)
		}
	}

	// 設置路由
	router, err := api.SetupRouter(cfg, deps)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
