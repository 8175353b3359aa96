package handlers

import (
	"net/http"

	"formcoach/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AIUsageHandler struct {
	service *services.AIUsageService
}

func NewAIUsageHandler(db *gorm.DB) *AIUsageHandler {
	return &AIUsageHandler{
		service: services.NewAIUsageService(db),
	}
}

// GetStats returns aggregated AI usage statistics
// GET /api/ai-usage/stats
func (h *AIUsageHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Query("start_date"), c.Query("end_date"), c.Query("stage"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
