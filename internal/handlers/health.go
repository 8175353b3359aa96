package handlers

import (
	"formcoach/internal/models"
	"github.com/gin-gonic/gin"
)

// HealthHandler reports subsystem status.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of the service and its database.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	var sessionCount int64
	models.GetDB().Model(&models.FeedbackSession{}).Count(&sessionCount)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "formcoach",
		"components": gin.H{
			"database":          dbStatus,
			"feedback_sessions": sessionCount,
		},
	})
}
