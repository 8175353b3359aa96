package models

import "time"

// Analysis provenance values recorded on a feedback session.
const (
	SourceExternalAI   = "external_ai"
	SourceGeminiDirect = "gemini_direct"
	SourceHybrid       = "hybrid"
)

// FeedbackSession stores one derived analysis view for a video. The
// composite unique index on (user_id, video_path, analysis_type) is the
// cache key: rows are written once and never updated.
type FeedbackSession struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         uint      `gorm:"uniqueIndex:idx_user_video_type;not null" json:"user_id"`
	User           *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	VideoPath      string    `gorm:"uniqueIndex:idx_user_video_type;size:500;not null" json:"video_path"`
	AnalysisType   string    `gorm:"uniqueIndex:idx_user_video_type;size:50;not null" json:"analysis_type"`
	FeedbackText   string    `gorm:"type:text" json:"feedback_text"`
	RawAnalysis    *string   `gorm:"type:text" json:"raw_analysis,omitempty"`
	AnalysisSource string    `gorm:"size:20;not null" json:"analysis_source"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (FeedbackSession) TableName() string { return "feedback_sessions" }
