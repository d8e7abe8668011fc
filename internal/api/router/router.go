package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"courtmate/backend/config"
	"courtmate/backend/internal/api/handler"
	"courtmate/backend/internal/api/middleware"
	"courtmate/backend/pkg/jwt"
	"courtmate/backend/pkg/redis"
	"courtmate/backend/pkg/response"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil：黑名单校验与限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if err := handler.RegisterValidators(); err != nil {
		logger.Fatal("注册参数校验规则失败", zap.Error(err))
	}

	// nil *redis.Client 不能直接作为接口传入
	var (
		checker middleware.TokenChecker
		limiter middleware.RateLimiter
	)
	if rdb != nil {
		checker, limiter = rdb, rdb
	}
	writeLimit := middleware.RateLimit(limiter, cfg.Slot.ApplyRateLimit, cfg.Slot.ApplyRateWindow)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing(cfg.Tracing.ServiceName))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", readiness(db, rdb, logger))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", middleware.RateLimit(limiter, 10, time.Minute), h.Auth.Register)
			auth.POST("/login", middleware.RateLimit(limiter, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}
		v1.GET("/levels", h.User.ListLevels)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, checker))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("/me", h.User.GetMe)
				users.PUT("/me", h.User.UpdateMe)
				users.GET("/:id", h.User.GetUser)
			}

			// 球场模块
			venues := authorized.Group("/venues")
			{
				venues.POST("", writeLimit, h.Venue.Create)
				venues.GET("/nearby", h.Venue.Nearby)
				venues.GET("/:id", h.Venue.Detail)
			}

			// 约球模块
			slots := authorized.Group("/slots")
			{
				slots.POST("", writeLimit, h.Slot.Create)
				slots.GET("/nearby", h.Slot.Nearby)
				slots.GET("/mine", h.Slot.Mine)
				slots.GET("/:id", h.Slot.Detail)
				slots.POST("/:id/cancel", h.Slot.Cancel)
				slots.GET("/:id/roster.xlsx", h.Export.ExportRoster)
				slots.GET("/:id/calendar.ics", h.Export.ExportCalendar)
			}

			// 报名申请模块
			applications := authorized.Group("/applications")
			{
				applications.POST("", writeLimit, h.Application.Apply)
				applications.POST("/:id/respond", h.Application.Respond)
			}
		}
	}

	return r
}

// readiness 检查数据库与 Redis 连通性
func readiness(db *gorm.DB, rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				logger.Warn("数据库不可用", zap.Error(err))
				response.ServiceUnavailable(c)
				return
			}
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "ok"
			if err := rdb.Ping(ctx); err != nil {
				logger.Warn("Redis 不可用", zap.Error(err))
				redisStatus = "degraded"
			}
		}

		response.OK(c, gin.H{"database": "ok", "redis": redisStatus})
	}
}
