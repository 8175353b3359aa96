package services

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"formcoach/internal/config"
	"formcoach/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func seedSession(t *testing.T, db *gorm.DB, userID uint) *models.FeedbackSession {
	t.Helper()
	session := &models.FeedbackSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		VideoPath:    "uploads/a.mp4",
		AnalysisType: AnalysisStrengths,
		FeedbackText: "Solid base position throughout the run.",
		CreatedAt:    time.Now(),
	}
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("failed to seed feedback session: %v", err)
	}
	return session
}

func newChatService(db *gorm.DB, ai FeedbackGenerator, archive bool) *ChatService {
	return NewChatService(db, ai, &config.ChatConfig{HistoryLimit: 20, ArchiveOnClear: archive})
}

func TestSendMessage_AppendsUserAndAssistantTurns(t *testing.T) {
	db := newTestDB(t)
	session := seedSession(t, db, 1)
	ai := newStubAI()
	ai.reply = "Focus on keeping your chest up during the drive phase."
	svc := newChatService(db, ai, false)

	reply, err := svc.SendMessage(context.Background(), 1, session.ID, "what should I work on first?")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if reply.Role != models.ChatRoleAssistant {
		t.Errorf("reply role = %q, expected assistant", reply.Role)
	}
	if reply.Content != ai.reply {
		t.Errorf("reply content = %q, expected %q", reply.Content, ai.reply)
	}

	history, err := svc.History(1, session.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Role != models.ChatRoleUser || history[1].Role != models.ChatRoleAssistant {
		t.Errorf("unexpected turn order: %q then %q", history[0].Role, history[1].Role)
	}
	if !history[0].CreatedAt.Before(history[1].CreatedAt) {
		t.Error("user turn should sort before the assistant turn")
	}
}

func TestSendMessage_PromptCarriesFeedbackAndHistory(t *testing.T) {
	db := newTestDB(t)
	session := seedSession(t, db, 1)
	ai := newStubAI()
	svc := newChatService(db, ai, false)

	ctx := context.Background()
	if _, err := svc.SendMessage(ctx, 1, session.ID, "first question"); err != nil {
		t.Fatalf("first SendMessage failed: %v", err)
	}

	var lastPrompt string
	ai.onPrompt = func(stage, prompt string, jsonMode bool) {
		if stage != StageChat {
			t.Errorf("stage = %q, expected %q", stage, StageChat)
		}
		if jsonMode {
			t.Error("chat replies should not request JSON mode")
		}
		lastPrompt = prompt
	}

	if _, err := svc.SendMessage(ctx, 1, session.ID, "second question"); err != nil {
		t.Fatalf("second SendMessage failed: %v", err)
	}

	if !strings.Contains(lastPrompt, session.FeedbackText) {
		t.Error("prompt should include the session's feedback text")
	}
	if !strings.Contains(lastPrompt, "first question") {
		t.Error("prompt should include the earlier user turn")
	}
	if !strings.Contains(lastPrompt, "second question") {
		t.Error("prompt should include the new message")
	}
}

func TestSendMessage_Validation(t *testing.T) {
	db := newTestDB(t)
	session := seedSession(t, db, 1)
	ai := newStubAI()
	svc := newChatService(db, ai, false)

	ctx := context.Background()

	_, err := svc.SendMessage(ctx, 1, session.ID, "   ")
	expectStatus(t, err, http.StatusBadRequest)

	_, err = svc.SendMessage(ctx, 1, "", "hello")
	expectStatus(t, err, http.StatusBadRequest)

	if ai.promptCalls != 0 {
		t.Errorf("no AI calls expected on validation failure, got %d", ai.promptCalls)
	}
}

func TestSendMessage_OtherUsersSession(t *testing.T) {
	db := newTestDB(t)
	session := seedSession(t, db, 1)
	svc := newChatService(db, newStubAI(), false)

	_, err := svc.SendMessage(context.Background(), 2, session.ID, "hello")
	expectStatus(t, err, http.StatusForbidden)

	_, err = svc.SendMessage(context.Background(), 1, uuid.NewString(), "hello")
	expectStatus(t, err, http.StatusNotFound)
}

func TestClear_DeletesMessages(t *testing.T) {
	db := newTestDB(t)
	session := seedSession(t, db, 1)
	svc := newChatService(db, newStubAI(), false)

	ctx := context.Background()
	if _, err := svc.SendMessage(ctx, 1, session.ID, "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if err := svc.Clear(1, session.ID); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	history, err := svc.History(1, session.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history after clear, got %d messages", len(history))
	}

	var count int64
	db.Model(&models.ChatMessage{}).Count(&count)
	if count != 0 {
		t.Errorf("expected 0 rows after delete-mode clear, found %d", count)
	}
}

func TestClear_ArchivesMessages(t *testing.T) {
	db := newTestDB(t)
	session := seedSession(t, db, 1)
	svc := newChatService(db, newStubAI(), true)

	ctx := context.Background()
	if _, err := svc.SendMessage(ctx, 1, session.ID, "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if err := svc.Clear(1, session.ID); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	history, err := svc.History(1, session.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("archived messages should not appear in history, got %d", len(history))
	}

	var count int64
	db.Model(&models.ChatMessage{}).Where("archived = ?", true).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 archived rows, found %d", count)
	}
}

func TestClear_OtherUsersSession(t *testing.T) {
	db := newTestDB(t)
	session := seedSession(t, db, 1)
	svc := newChatService(db, newStubAI(), false)

	err := svc.Clear(2, session.ID)
	expectStatus(t, err, http.StatusForbidden)
}
