package handlers

import (
	"net/http"

	"formcoach/internal/middleware"
	"formcoach/internal/services"
	"formcoach/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type VideoHandler struct {
	service *services.VideoService
}

func NewVideoHandler(db *gorm.DB) *VideoHandler {
	return &VideoHandler{
		service: services.NewVideoService(db),
	}
}

// Register records an uploaded video object
// POST /api/videos
func (h *VideoHandler) Register(c *gin.Context) {
	var req services.RegisterVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	video, err := h.service.Register(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, video)
}

// List returns the caller's videos, newest first
// GET /api/videos
func (h *VideoHandler) List(c *gin.Context) {
	videos, err := h.service.List(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, videos)
}

// Delete removes a registered video
// DELETE /api/videos/:id
func (h *VideoHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(middleware.GetUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
