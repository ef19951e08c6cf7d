package api

import (
	"context"
	"net/http"
	"time"

	"recipe-ai-gateway/internal/api/handlers/health"
	recipeHandler "recipe-ai-gateway/internal/api/handlers/recipe"
	"recipe-ai-gateway/internal/api/middleware"
	"recipe-ai-gateway/internal/core/ai/service"
	"recipe-ai-gateway/internal/core/ai/webhook"
	recipeService "recipe-ai-gateway/internal/core/recipe"
	"recipe-ai-gateway/internal/infrastructure/config"
	"recipe-ai-gateway/internal/infrastructure/metrics"
	"recipe-ai-gateway/internal/infrastructure/persistence"
	"recipe-ai-gateway/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 由 main 建立的外部資源，皆可為 nil
type Dependencies struct {
	Store *persistence.RecipeRepository
	Dedup middleware.DedupStore
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(metrics.Middleware())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.UserIDHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.UserIdentity())
	router.Use(requestTimeout(cfg.Server.RequestTimeout))

	common.LogInfo("Initializing services",
		zap.Bool("store_enabled", deps.Store != nil),
		zap.Duration("upstream_timeout", cfg.Upstream.Timeout),
		zap.Int("upstream_max_retries", cfg.Upstream.MaxRetries),
	)

	// 初始化服務
	aiService := service.NewService(cfg)

	var store recipeService.RecipeStore
	var pinger health.Pinger
	if deps.Store != nil {
		store = deps.Store
		pinger = deps.Store
	}
	generationSvc := recipeService.NewGenerationService(aiService, recipeService.NewFanout(store, cfg.Store.FanoutTimeout))

	chatURL := cfg.Webhook.ChatURL
	if common.IsBlank(chatURL) {
		chatURL = config.DefaultChatWebhookURL
	}
	chatClient, err := webhook.NewClient(chatURL, service.ProviderConfig(cfg))
	if err != nil {
		return nil, err
	}
	chatSvc := recipeService.NewChatService(chatClient)

	// 健康檢查路由
	healthHandler := health.NewHandler(health.Dependencies{
		Version:  cfg.App.Version,
		Provider: aiService.ProviderName,
		Store:    pinger,
	})
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", metrics.Handler())

	// 食譜路由
	handler := recipeHandler.NewHandler(generationSvc, chatSvc)
	recipes := router.Group("/recipes")
	if cfg.RateLimit.Enabled {
		recipes.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	{
		generate := []gin.HandlerFunc{}
		if deps.Dedup != nil {
			generate = append(generate, middleware.Deduplication(deps.Dedup, cfg.DedupWindow))
		}
		generate = append(generate, handler.HandleGenerate)

		recipes.POST("/generate", generate...)
		recipes.POST("/:id/chat", handler.HandleChat)
	}

	common.LogInfo("Router setup completed successfully",
		zap.String("provider", aiService.ProviderName()),
		zap.Bool("store_enabled", deps.Store != nil),
		zap.Bool("dedup_enabled", deps.Dedup != nil),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}

// requestTimeout 設置請求超時，處理器未輸出時返回 504
func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, common.ErrorResponse{
				Error: "Request timeout",
				Code:  common.ErrCodeRequestTimeout,
			})
		}
	}
}
