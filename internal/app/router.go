package app

import (
	"privacy_edu_backend/docs"
	"privacy_edu_backend/internal/config"
	"privacy_edu_backend/internal/middleware"
	"privacy_edu_backend/internal/model"
	"privacy_edu_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		// 目录是公开的：停用只拦截写入，不隐藏模块
		public.GET("/modules", c.catalog.ListModules)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		progress := authGroup.Group("/progress")
		{
			progress.POST("/enroll", c.progress.Enroll)
			progress.GET("", c.progress.GetSummary)
			progress.GET("/total", c.progress.GetTotalProgress)
			progress.GET("/streak", c.progress.GetStreak)
			progress.GET("/completed-lessons", c.progress.GetCompletedLessons)
			progress.GET("/enrolled", c.progress.GetEnrolled)
			progress.GET("/enrolled/:userId", c.progress.GetEnrolled)
			progress.GET("/modules/:moduleId", c.progress.GetModuleProgress)
			progress.GET("/modules/:moduleId/lessons/:lessonId", c.progress.GetLessonStatus)
			progress.POST("/modules/:moduleId/lessons/:lessonId", c.progress.RecordCompletion)
		}
	}

	// 3. 管理员相关接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/modules", c.catalog.AddModule)
		admin.PATCH("/modules/:moduleId/toggle", c.catalog.ToggleModule)
		admin.GET("/users", c.admin.GetUsers)
		admin.GET("/events", c.admin.GetEvents)
	}
}
