package main

import (
	"formcoach/internal/middleware"
	"formcoach/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// The AI-backed routes get a tighter limit than the rest of the API.
	aiLimiter := middleware.NewRateLimiter(2, 5)

	r.GET("/health", svc.health.CheckHealth)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Videos
			protected.POST("/videos", svc.videoHandler.Register)
			protected.GET("/videos", svc.videoHandler.List)
			protected.DELETE("/videos/:id", svc.videoHandler.Delete)

			// Analysis
			protected.POST("/analyze", aiLimiter.Middleware(), svc.feedbackHandler.Analyze)
			protected.GET("/history", svc.feedbackHandler.History)
			protected.GET("/analysis-types", svc.feedbackHandler.AnalysisTypes)

			// Chat
			protected.POST("/chat", aiLimiter.Middleware(), svc.chatHandler.Send)
			protected.GET("/chat/history", svc.chatHandler.History)
			protected.POST("/chat/history", svc.chatHandler.History) // legacy clients
			protected.POST("/chat/clear", svc.chatHandler.Clear)

			// Admin
			admin := protected.Group("", middleware.AdminRequired())
			{
				admin.GET("/system-logs", svc.systemLog.List)
				admin.GET("/ai-usage/stats", svc.aiUsage.GetStats)
			}
		}
	}
}
