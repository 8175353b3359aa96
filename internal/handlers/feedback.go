package handlers

import (
	"net/http"
	"strconv"

	"formcoach/internal/middleware"
	"formcoach/internal/services"
	"formcoach/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type FeedbackHandler struct {
	service *services.FeedbackService
}

func NewFeedbackHandler(db *gorm.DB, ai services.FeedbackGenerator) *FeedbackHandler {
	return &FeedbackHandler{
		service: services.NewFeedbackService(db, ai),
	}
}

type analyzeRequest struct {
	VideoPath    string `json:"video_path" binding:"required"`
	AnalysisType string `json:"analysis_type" binding:"required"`
}

// Analyze runs or replays one analysis view for a video
// POST /api/analyze
func (h *FeedbackHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), &services.AnalyzeRequest{
		UserID:       middleware.GetUserID(c),
		VideoPath:    req.VideoPath,
		AnalysisType: req.AnalysisType,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"feedback":            result.Session.FeedbackText,
		"feedback_session_id": result.Session.ID,
		"analysis_type":       result.Session.AnalysisType,
		"cached":              result.Cached,
	})
}

// History lists the caller's sessions, or one session by id
// GET /api/history
func (h *FeedbackHandler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if sessionID := c.Query("feedback_session_id"); sessionID != "" {
		session, err := h.service.GetSession(userID, sessionID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, []interface{}{session})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	sessions, err := h.service.ListRecent(userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// AnalysisTypes lists the recognized analysis views
// GET /api/analysis-types
func (h *FeedbackHandler) AnalysisTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": services.KnownAnalysisTypes()})
}
