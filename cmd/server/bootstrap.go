package main

import (
	"formcoach/internal/config"
	"formcoach/internal/handlers"
	"formcoach/internal/models"
	"formcoach/internal/services"
	"formcoach/internal/utils"
	"formcoach/pkg/logger"
)

// appServices holds the initialized services and handlers the routes need.
type appServices struct {
	cfg             *config.Config
	aiService       *services.AIService
	authHandler     *handlers.AuthHandler
	videoHandler    *handlers.VideoHandler
	feedbackHandler *handlers.FeedbackHandler
	chatHandler     *handlers.ChatHandler
	systemLog       *handlers.SystemLogHandler
	aiUsage         *handlers.AIUsageHandler
	health          *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services,
// schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	services.InitSystemLogger(models.GetDB())
	services.StartLogCleanupScheduler(models.GetDB(), cfg.Log.RetentionDays)

	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	aiService := services.NewAIService(models.GetDB(), &cfg.AI)

	return &appServices{
		cfg:             cfg,
		aiService:       aiService,
		authHandler:     authHandler,
		videoHandler:    handlers.NewVideoHandler(models.GetDB()),
		feedbackHandler: handlers.NewFeedbackHandler(models.GetDB(), aiService),
		chatHandler:     handlers.NewChatHandler(models.GetDB(), aiService, &cfg.Chat),
		systemLog:       handlers.NewSystemLogHandler(models.GetDB()),
		aiUsage:         handlers.NewAIUsageHandler(models.GetDB()),
		health:          handlers.NewHealthHandler(),
	}
}

// shutdown gracefully stops background jobs.
func (s *appServices) shutdown() {
	services.StopLogCleanupScheduler()
	logger.Info().Msg("schedulers stopped")
}
