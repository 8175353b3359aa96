package handlers

import (
	"net/http"

	"formcoach/internal/config"
	"formcoach/internal/middleware"
	"formcoach/internal/services"
	"formcoach/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ChatHandler struct {
	service *services.ChatService
}

func NewChatHandler(db *gorm.DB, ai services.FeedbackGenerator, cfg *config.ChatConfig) *ChatHandler {
	return &ChatHandler{
		service: services.NewChatService(db, ai, cfg),
	}
}

type chatRequest struct {
	FeedbackSessionID string `json:"feedback_session_id" binding:"required"`
	Message           string `json:"message" binding:"required"`
}

// Send appends a user message and returns the assistant reply
// POST /api/chat
func (h *ChatHandler) Send(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.service.SendMessage(c.Request.Context(), middleware.GetUserID(c), req.FeedbackSessionID, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   reply.Content,
		"id":        reply.ID,
		"timestamp": reply.CreatedAt,
	})
}

// History returns the conversation for a session, oldest first
// GET /api/chat/history (POST accepted for compatibility)
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := sessionIDFromRequest(c)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feedback_session_id is required"})
		return
	}

	messages, err := h.service.History(middleware.GetUserID(c), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// Clear archives or deletes the conversation for a session
// POST /api/chat/clear
func (h *ChatHandler) Clear(c *gin.Context) {
	sessionID := sessionIDFromRequest(c)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feedback_session_id is required"})
		return
	}

	if err := h.service.Clear(middleware.GetUserID(c), sessionID); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "conversation cleared"})
}

// sessionIDFromRequest reads feedback_session_id from the query string, or
// from the JSON body for clients that POST it.
func sessionIDFromRequest(c *gin.Context) string {
	if id := c.Query("feedback_session_id"); id != "" {
		return id
	}
	var body struct {
		FeedbackSessionID string `json:"feedback_session_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return ""
	}
	return body.FeedbackSessionID
}
