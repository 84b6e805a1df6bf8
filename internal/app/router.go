package app

import (
	"quiz_edu_backend/docs"
	"quiz_edu_backend/internal/config"
	"quiz_edu_backend/internal/middleware"
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerQuizRoutes(authGroup, c)
		a.registerCatalogRoutes(authGroup, c)
		a.registerCodingRoutes(authGroup, c)
		a.registerUserRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
	}
}

func (a *App) registerQuizRoutes(rg *gin.RouterGroup, c *controllers) {
	sessions := rg.Group("/quiz-sessions")
	{
		sessions.POST("/start", c.quizSession.Start)
		sessions.GET("/history", c.quizSession.ListHistory)
		sessions.GET("/active/:categoryId", c.quizSession.GetActive)
		sessions.POST("/:sessionId/answer", c.quizSession.SubmitAnswer)
		sessions.POST("/:sessionId/submit", c.quizSession.Complete)
		sessions.POST("/:sessionId/abandon", c.quizSession.Abandon)
		sessions.GET("/:sessionId/results", c.quizSession.GetResults)
	}

	history := rg.Group("/attempt-history")
	{
		history.GET("", c.attemptHistory.List)
		history.GET("/stats", c.attemptHistory.Stats)
		history.GET("/analytics", c.attemptHistory.Analytics)
		history.GET("/export", c.attemptHistory.Export)
		history.GET("/leaderboard/:categoryId", c.attemptHistory.Leaderboard)
		history.GET("/:id", c.attemptHistory.Get)
	}
}

func (a *App) registerCatalogRoutes(rg *gin.RouterGroup, c *controllers) {
	adminOnly := middleware.RoleMiddleware(model.Admin)

	categories := rg.Group("/categories")
	{
		categories.GET("", c.category.List)
		categories.GET("/by-name/:name", c.category.FindByName)
		categories.GET("/:id", c.category.Get)
		categories.GET("/:id/stats", adminOnly, c.category.Stats)
		categories.POST("", adminOnly, c.category.Create)
		categories.PUT("/:id", adminOnly, c.category.Update)
		categories.DELETE("/:id", adminOnly, c.category.Delete)
		categories.PATCH("/:id/toggle-status", adminOnly, c.category.ToggleStatus)
	}

	questions := rg.Group("/questions")
	{
		questions.GET("", c.question.List)
		questions.GET("/stats", adminOnly, c.question.Stats)
		questions.GET("/:id", c.question.Get)
		questions.POST("", adminOnly, c.question.Create)
		questions.POST("/bulk", adminOnly, c.question.BulkCreate)
		questions.PUT("/:id", adminOnly, c.question.Update)
		questions.DELETE("/:id", adminOnly, c.question.Delete)
		questions.PATCH("/:id/toggle-status", adminOnly, c.question.ToggleStatus)
	}
}

func (a *App) registerCodingRoutes(rg *gin.RouterGroup, c *controllers) {
	adminOnly := middleware.RoleMiddleware(model.Admin)

	challenges := rg.Group("/coding-challenges")
	{
		challenges.GET("", c.codingChallenge.List)
		challenges.GET("/:id", c.codingChallenge.Get)
		challenges.PUT("/:id/draft", c.challengeSubmission.SaveDraft)
		challenges.POST("/:id/submit", c.challengeSubmission.Submit)
		challenges.POST("", adminOnly, c.codingChallenge.Create)
		challenges.PUT("/:id", adminOnly, c.codingChallenge.Update)
		challenges.DELETE("/:id", adminOnly, c.codingChallenge.Delete)
		challenges.PATCH("/:id/toggle-status", adminOnly, c.codingChallenge.ToggleStatus)
	}

	submissions := rg.Group("/challenge-submissions")
	{
		submissions.GET("/mine", c.challengeSubmission.ListMine)
		submissions.GET("/:id", c.challengeSubmission.Get)
		submissions.POST("/:id/source", c.challengeSubmission.UploadSource)
		submissions.GET("", adminOnly, c.challengeSubmission.List)
		submissions.POST("/:id/start-review", adminOnly, c.challengeSubmission.StartReview)
		submissions.POST("/:id/review", adminOnly, c.challengeSubmission.Review)
		submissions.POST("/:id/reject", adminOnly, c.challengeSubmission.Reject)
		submissions.POST("/:id/run-tests", adminOnly, c.challengeSubmission.RunTests)
	}

	coding := rg.Group("/coding-submissions")
	{
		coding.POST("", c.codingSubmission.Submit)
		coding.GET("", c.codingSubmission.ListMine)
		coding.GET("/:id", c.codingSubmission.Get)
	}
}

func (a *App) registerUserRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/auth/me", c.auth.Me)

	users := rg.Group("/users")
	{
		users.PUT("/profile", c.user.UpdateProfile)

		// 管理员相关接口
		admin := users.Group("")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		{
			admin.GET("", c.user.List)
			admin.GET("/:id", c.user.Get)
			admin.PUT("/:id", c.user.Update)
			admin.DELETE("/:id", c.user.Delete)
		}
	}
}
