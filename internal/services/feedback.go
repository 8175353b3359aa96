package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"formcoach/internal/models"
	"formcoach/pkg/logger"
	"formcoach/pkg/response"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedbackGenerator is the slice of the AI client the analysis flow needs.
type FeedbackGenerator interface {
	GenerateRawAnalysis(ctx context.Context, videoURI, contentType string) (string, string, error)
	GenerateFromPrompt(ctx context.Context, stage, prompt string, jsonMode bool) (string, string, error)
}

// FeedbackService runs the analyze pipeline: cache check, raw analysis
// reuse or first-stage generation, prompt derivation, single-row persist.
// Cache correctness across concurrent requests relies entirely on the
// unique index over (user_id, video_path, analysis_type); a duplicate-key
// insert means another request won the race and its row is served instead.
type FeedbackService struct {
	db *gorm.DB
	ai FeedbackGenerator
}

func NewFeedbackService(db *gorm.DB, ai FeedbackGenerator) *FeedbackService {
	return &FeedbackService{db: db, ai: ai}
}

type AnalyzeRequest struct {
	UserID       uint
	VideoPath    string
	AnalysisType string
}

type AnalyzeResult struct {
	Session *models.FeedbackSession
	Cached  bool
}

// Analyze returns the feedback session for (user, video, analysisType),
// generating and persisting it on a cache miss.
func (s *FeedbackService) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResult, error) {
	if req.VideoPath == "" {
		return nil, response.NewBadRequest("video_path is required")
	}
	if !IsValidAnalysisType(req.AnalysisType) {
		return nil, response.NewBadRequest("invalid analysis_type: " + req.AnalysisType)
	}

	video, err := s.findOwnedVideo(req.UserID, req.VideoPath)
	if err != nil {
		return nil, err
	}

	// Cache check: one row per (user, video, analysis type).
	if cached := s.findCached(req.UserID, req.VideoPath, req.AnalysisType); cached != nil {
		logger.Debug().
			Str("session", cached.ID).
			Str("analysis_type", req.AnalysisType).
			Msg("analysis cache hit")
		return &AnalyzeResult{Session: cached, Cached: true}, nil
	}

	// Reuse the raw analysis from any sibling view of the same video so
	// the first-stage call runs once per video.
	rawAnalysis := s.findAnyRawAnalysis(req.UserID, req.VideoPath)
	rawProvider := "gemini"
	if rawAnalysis == "" {
		raw, provider, genErr := s.ai.GenerateRawAnalysis(ctx, video.Path, video.ContentType)
		if genErr != nil {
			return nil, response.NewUnavailable("video analysis failed: " + genErr.Error())
		}
		rawAnalysis = raw
		rawProvider = provider
	}

	prompt, jsonMode, err := BuildPrompt(req.AnalysisType, rawAnalysis)
	if err != nil {
		return nil, response.NewBadRequest(err.Error())
	}

	feedback, feedbackProvider, err := s.ai.GenerateFromPrompt(ctx, StageFeedback, prompt, jsonMode)
	if err != nil {
		return nil, response.NewUnavailable("feedback generation failed: " + err.Error())
	}

	if jsonMode {
		feedback = StripJSONFences(feedback)
		if !json.Valid([]byte(feedback)) {
			return nil, response.NewUnavailable("model returned malformed structured output")
		}
	}

	session := &models.FeedbackSession{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		VideoPath:      req.VideoPath,
		AnalysisType:   req.AnalysisType,
		FeedbackText:   feedback,
		RawAnalysis:    &rawAnalysis,
		AnalysisSource: AnalysisSource(rawProvider, feedbackProvider),
		CreatedAt:      time.Now(),
	}

	if err := s.db.Create(session).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent request inserted the same triple first. Its
			// row is the cache entry now; serve that one.
			if winner := s.findCached(req.UserID, req.VideoPath, req.AnalysisType); winner != nil {
				logger.Info().
					Str("analysis_type", req.AnalysisType).
					Msg("lost insert race, serving existing session")
				return &AnalyzeResult{Session: winner, Cached: true}, nil
			}
		}
		// The feedback is already generated; a failed persist only costs
		// the cache entry. Return the text and let a later request redo
		// the work.
		logger.Error().Err(err).
			Str("analysis_type", req.AnalysisType).
			Msg("failed to persist feedback session, returning uncached result")
		return &AnalyzeResult{Session: session, Cached: false}, nil
	}

	return &AnalyzeResult{Session: session, Cached: false}, nil
}

// ListRecent returns the caller's sessions, newest first.
func (s *FeedbackService) ListRecent(userID uint, limit int) ([]models.FeedbackSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var sessions []models.FeedbackSession
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// GetSession loads one session and verifies ownership.
func (s *FeedbackService) GetSession(userID uint, sessionID string) (*models.FeedbackSession, error) {
	var session models.FeedbackSession
	if err := s.db.Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("feedback session not found")
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, response.NewForbidden("feedback session belongs to another user")
	}
	return &session, nil
}

func (s *FeedbackService) findOwnedVideo(userID uint, videoPath string) (*models.Video, error) {
	var video models.Video
	if err := s.db.Where("path = ?", videoPath).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("video not found")
		}
		return nil, err
	}
	if video.UserID != userID {
		return nil, response.NewForbidden("video belongs to another user")
	}
	return &video, nil
}

func (s *FeedbackService) findCached(userID uint, videoPath, analysisType string) *models.FeedbackSession {
	var session models.FeedbackSession
	err := s.db.Where(
		"user_id = ? AND video_path = ? AND analysis_type = ?",
		userID, videoPath, analysisType,
	).First(&session).Error
	if err != nil {
		return nil
	}
	return &session
}

// findAnyRawAnalysis returns the newest stored raw analysis for the video,
// whatever analysis type produced it.
func (s *FeedbackService) findAnyRawAnalysis(userID uint, videoPath string) string {
	var session models.FeedbackSession
	err := s.db.Where(
		"user_id = ? AND video_path = ? AND raw_analysis IS NOT NULL AND raw_analysis != ''",
		userID, videoPath,
	).Order("created_at DESC").First(&session).Error
	if err != nil || session.RawAnalysis == nil {
		return ""
	}
	return *session.RawAnalysis
}
