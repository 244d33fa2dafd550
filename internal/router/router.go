package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/affiliate-ledger/internal/cache"
	"github.com/affiliate-ledger/internal/config"
	"github.com/affiliate-ledger/internal/constants"
	merchanthandlers "github.com/affiliate-ledger/internal/http/handlers/merchant"
	publichandlers "github.com/affiliate-ledger/internal/http/handlers/public"
	"github.com/affiliate-ledger/internal/http/response"
	"github.com/affiliate-ledger/internal/logger"
	"github.com/affiliate-ledger/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按公开/商户分组）
	publicHandler := publichandlers.New(c)
	merchantHandler := merchanthandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	webhookRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:webhook", redisPrefix),
		WindowSeconds: cfg.Security.WebhookRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.WebhookRateLimit.MaxRequests,
		Message:       "Too many webhook deliveries",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", healthCheck(c.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 第三方 webhook
		webhook := apiV1.Group("/webhook")
		webhook.Use(RateLimitMiddleware(cache.Client(), webhookRule, KeyByIPAndJSONField("merchant_domain")))
		{
			webhook.POST("/orders", publicHandler.ReceiveOrderWebhook)
		}

		// 商户接口
		merchant := apiV1.Group("/merchant")
		merchant.Use(MerchantBasicAuthMiddleware(c.MerchantService))
		{
			merchant.GET("/order-stats", merchantHandler.GetOrderStats)
			merchant.GET("/affiliates", merchantHandler.ListAffiliates)
			merchant.POST("/affiliates/:id/payouts", merchantHandler.DispatchPayouts)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Not found")
	})

	return r
}

// healthCheck 检查数据库与缓存连通性
func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := gin.H{"database": "ok", "redis": "ok"}
		healthy := true
		if db == nil {
			status["database"] = "uninitialized"
			healthy = false
		} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["database"] = "unreachable"
			healthy = false
		}
		if err := cache.Ping(ctx); err != nil {
			status["redis"] = "unreachable"
			healthy = false
		}
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}
