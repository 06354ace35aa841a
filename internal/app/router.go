package app

import (
	"teachtrack_backend/docs"
	"teachtrack_backend/internal/config"
	"teachtrack_backend/internal/middleware"
	"teachtrack_backend/internal/model"
	"teachtrack_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由，平台面向教师，普通接口即要求teacher角色
	api := router.Group("/api")
	api.Use(
		middleware.AuthMiddleware(cfg),
		middleware.RoleMiddleware(model.RoleTeacher),
		middleware.ActivityMiddleware(repos.user),
	)
	{
		api.GET("/profile", c.auth.GetProfile)

		// 教学单元
		api.POST("/modules", c.module.Create)
		api.GET("/modules", c.module.List)
		api.GET("/modules/:id", c.module.Get)
		api.PUT("/modules/:id", c.module.Update)
		api.DELETE("/modules/:id", c.module.Delete)

		// 课程
		api.GET("/modules/:id/lessons", c.lesson.ListByModule)
		api.GET("/lessons/:id", c.lesson.Get)
		api.PUT("/lessons/:id", c.lesson.Update)
		api.DELETE("/lessons/:id", c.lesson.Delete)
		api.POST("/lessons/:id/resources", c.lesson.UploadResource)
		api.GET("/lessons/:id/resources", c.lesson.ListResources)
		api.DELETE("/lessons/resources/:resourceId", c.lesson.DeleteResource)

		// 测评
		api.GET("/modules/:id/assessments", c.assessment.ListByModule)
		api.GET("/assessments/:id", c.assessment.Get)
		api.PUT("/assessments/:id", c.assessment.Update)
		api.DELETE("/assessments/:id", c.assessment.Delete)
		api.PUT("/assessments/:id/questions/:questionId", c.assessment.UpdateQuestion)
		api.DELETE("/assessments/:id/questions/:questionId", c.assessment.DeleteQuestion)

		// 学生与成绩
		api.POST("/students", c.student.Create)
		api.GET("/students", c.student.List)
		api.GET("/students/:id", c.student.Get)
		api.PUT("/students/:id", c.student.Update)
		api.DELETE("/students/:id", c.student.Delete)
		api.POST("/students/:id/scores", c.student.RecordScore)
		api.GET("/students/:id/scores", c.student.ListScores)
		api.DELETE("/students/:id/scores/:scoreId", c.student.DeleteScore)
		api.GET("/students/:id/performance", c.student.GetPerformance)
		api.POST("/students/performance", c.student.GetClassPerformance)

		// AI生成
		generate := api.Group("/generate")
		{
			generate.POST("/assessment", c.generation.GenerateAssessment)
			generate.POST("/lesson", c.generation.GenerateLesson)
			generate.POST("/lesson/comprehensive", c.generation.GenerateComprehensiveLesson)
			generate.POST("/section-content", c.generation.GenerateSectionContent)
			generate.POST("/multimedia", c.generation.GenerateMultimedia)
			generate.POST("/differentiated", c.generation.GenerateDifferentiated)
		}
	}
}
