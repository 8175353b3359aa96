package services

import (
	"context"
	"strings"
	"time"

	"formcoach/internal/config"
	"formcoach/internal/models"
	"formcoach/pkg/response"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const chatSystemInstructions = `You are a supportive performance coach chatting with a user about feedback they received on one of their training videos. Ground every answer in the feedback below. Keep replies short and conversational. If the user asks about something the analysis cannot support, say so instead of guessing.`

// ChatService handles the conversation attached to a feedback session.
// Messages are append-only; clearing a conversation archives or deletes
// them depending on configuration.
type ChatService struct {
	db             *gorm.DB
	ai             FeedbackGenerator
	feedback       *FeedbackService
	historyLimit   int
	archiveOnClear bool
}

func NewChatService(db *gorm.DB, ai FeedbackGenerator, cfg *config.ChatConfig) *ChatService {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = 20
	}
	return &ChatService{
		db:             db,
		ai:             ai,
		feedback:       NewFeedbackService(db, ai),
		historyLimit:   limit,
		archiveOnClear: cfg.ArchiveOnClear,
	}
}

// SendMessage appends a user turn, gets one assistant reply grounded in the
// session's feedback plus recent history, appends it, and returns it.
func (s *ChatService) SendMessage(ctx context.Context, userID uint, sessionID, message string) (*models.ChatMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, response.NewBadRequest("message is required")
	}
	if sessionID == "" {
		return nil, response.NewBadRequest("feedback_session_id is required")
	}

	session, err := s.feedback.GetSession(userID, sessionID)
	if err != nil {
		return nil, err
	}

	history, err := s.recentHistory(sessionID)
	if err != nil {
		return nil, err
	}

	prompt := s.buildChatPrompt(session, history, message)

	reply, _, err := s.ai.GenerateFromPrompt(ctx, StageChat, prompt, false)
	if err != nil {
		return nil, response.NewUnavailable("chat reply failed: " + err.Error())
	}

	now := time.Now()
	userMsg := &models.ChatMessage{
		ID:                uuid.NewString(),
		FeedbackSessionID: sessionID,
		Role:              models.ChatRoleUser,
		Content:           message,
		CreatedAt:         now,
	}
	assistantMsg := &models.ChatMessage{
		ID:                uuid.NewString(),
		FeedbackSessionID: sessionID,
		Role:              models.ChatRoleAssistant,
		Content:           reply,
		// Keep a stable ordering between the pair.
		CreatedAt: now.Add(time.Millisecond),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		return tx.Create(assistantMsg).Error
	})
	if err != nil {
		return nil, err
	}

	return assistantMsg, nil
}

// History returns the session's visible messages, oldest first.
func (s *ChatService) History(userID uint, sessionID string) ([]models.ChatMessage, error) {
	if _, err := s.feedback.GetSession(userID, sessionID); err != nil {
		return nil, err
	}

	var messages []models.ChatMessage
	err := s.db.Where("feedback_session_id = ? AND archived = ?", sessionID, false).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

// Clear removes the conversation from view. With archiving enabled the
// rows are kept but flagged; otherwise they are deleted.
func (s *ChatService) Clear(userID uint, sessionID string) error {
	if _, err := s.feedback.GetSession(userID, sessionID); err != nil {
		return err
	}

	query := s.db.Where("feedback_session_id = ? AND archived = ?", sessionID, false)
	if s.archiveOnClear {
		return query.Model(&models.ChatMessage{}).Update("archived", true).Error
	}
	return query.Delete(&models.ChatMessage{}).Error
}

// recentHistory loads the last historyLimit visible messages in
// chronological order.
func (s *ChatService) recentHistory(sessionID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := s.db.Where("feedback_session_id = ? AND archived = ?", sessionID, false).
		Order("created_at DESC").
		Limit(s.historyLimit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *ChatService) buildChatPrompt(session *models.FeedbackSession, history []models.ChatMessage, message string) string {
	var b strings.Builder
	b.WriteString(chatSystemInstructions)
	b.WriteString("\n\nFeedback the user received (")
	b.WriteString(session.AnalysisType)
	b.WriteString("):\n")
	b.WriteString(session.FeedbackText)

	if session.RawAnalysis != nil && *session.RawAnalysis != "" {
		b.WriteString("\n\nUnderlying analysis data:\n")
		b.WriteString(*session.RawAnalysis)
	}

	if len(history) > 0 {
		b.WriteString("\n\nConversation so far:\n")
		for _, m := range history {
			b.WriteString(m.Role)
			b.WriteString(": ")
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nuser: ")
	b.WriteString(message)
	b.WriteString("\nassistant:")
	return b.String()
}
