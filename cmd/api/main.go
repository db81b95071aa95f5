package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"recipe-catalog/internal/api"
	"recipe-catalog/internal/api/handlers/health"
	"recipe-catalog/internal/core/ai"
	"recipe-catalog/internal/core/cache"
	"recipe-catalog/internal/core/catalog"
	"recipe-catalog/internal/core/retry"
	"recipe-catalog/internal/core/search"
	"recipe-catalog/internal/infrastructure/config"
	"recipe-catalog/internal/infrastructure/store"
	"recipe-catalog/internal/pkg/common"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("openrouter_enabled", cfg.OpenRouter.Enabled),
		zap.String("openrouter_key", config.MaskSecret(cfg.OpenRouter.APIKey)),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
	)

	// 初始化儲存層
	db, err := store.Open(&cfg.Store)
	if err != nil {
		common.LogFatal("Failed to open store", zap.Error(err))
	}
	defer db.Close()

	policy := retry.FromConfig(&cfg.Retry)
	catalogOpts := []catalog.Option{
		catalog.WithRetry(policy),
		catalog.WithListLimit(cfg.Search.ListLimit),
	}
	engineOpts := []search.Option{
		search.WithRetry(policy),
		search.WithLimit(cfg.Search.ResultLimit),
	}

	// 初始化快取
	var cacheStats health.StatsProvider
	if cfg.Cache.Enabled {
		results, closeCache := openCache(cfg)
		defer closeCache()
		if m, ok := results.(*cache.Manager); ok {
			cacheStats = m
		}
		catalogOpts = append(catalogOpts, catalog.WithPurger(results))
		engineOpts = append(engineOpts, search.WithCache(results))
	}

	// 初始化 LLM 生成
	if cfg.OpenRouter.Enabled {
		client := ai.NewClient(&cfg.OpenRouter)
		queue := ai.NewQueue(client, &cfg.Queue)
		catalogOpts = append(catalogOpts, catalog.WithGenerator(ai.NewGenerator(queue)))
		common.LogInfo("食譜生成已啟用",
			zap.String("model", client.Model()),
			zap.Int("queue_workers", cfg.Queue.Workers),
			zap.Int("queue_max_size", cfg.Queue.MaxSize),
		)
	}

	catalogSvc := catalog.NewService(db, catalogOpts...)
	engine := search.NewEngine(db, engineOpts...)

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Catalog:    catalogSvc,
		Engine:     engine,
		Store:      db,
		CacheStats: cacheStats,
	})
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

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}

type resultCache interface {
	cache.ResultCache
	cache.Purger
}

// openCache 依設定選擇快取後端；Redis 無法連線時退回記憶體快取
func openCache(cfg *config.Config) (resultCache, func()) {
	if cfg.Cache.Backend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		rc, err := cache.NewRedisCache(ctx, &cfg.Cache)
		if err == nil {
			return rc, func() { _ = rc.Close() }
		}
		common.LogWarn("Redis 無法連線，改用記憶體快取", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
	}

	m := cache.NewManager(&cfg.Cache)
	return m, func() { _ = m.Close() }
}
