package models

import "time"

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn in the conversation attached to a feedback
// session. Rows are append-only and ordered by creation time; clearing a
// conversation either archives or deletes them depending on config.
type ChatMessage struct {
	ID                string           `gorm:"primaryKey;size:36" json:"id"`
	FeedbackSessionID string           `gorm:"index;size:36;not null" json:"feedback_session_id"`
	FeedbackSession   *FeedbackSession `gorm:"foreignKey:FeedbackSessionID;constraint:OnDelete:CASCADE" json:"-"`
	Role              string           `gorm:"size:20;not null" json:"role"`
	Content           string           `gorm:"type:text;not null" json:"content"`
	Archived          bool             `gorm:"default:false;index" json:"-"`
	CreatedAt         time.Time        `gorm:"index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
