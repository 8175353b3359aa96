package services

import (
	"errors"
	"strings"
	"time"

	"formcoach/internal/models"
	"formcoach/pkg/response"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoService manages the registry of uploaded videos. The objects
// themselves live in external storage; only their keys are tracked here.
type VideoService struct {
	db *gorm.DB
}

func NewVideoService(db *gorm.DB) *VideoService {
	return &VideoService{db: db}
}

type RegisterVideoRequest struct {
	Path        string `json:"path" binding:"required"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// Register records an uploaded video object for the user.
func (s *VideoService) Register(userID uint, req *RegisterVideoRequest) (*models.Video, error) {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return nil, response.NewBadRequest("path is required")
	}

	video := &models.Video{
		ID:          uuid.NewString(),
		UserID:      userID,
		Path:        path,
		Title:       req.Title,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		CreatedAt:   time.Now(),
	}

	if err := s.db.Create(video).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflict("video path already registered")
		}
		return nil, err
	}

	return video, nil
}

// List returns the user's videos, newest first.
func (s *VideoService) List(userID uint) ([]models.Video, error) {
	var videos []models.Video
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&videos).Error
	return videos, err
}

// Delete removes a registered video owned by the user.
func (s *VideoService) Delete(userID uint, videoID string) error {
	var video models.Video
	if err := s.db.Where("id = ?", videoID).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewNotFound("video not found")
		}
		return err
	}
	if video.UserID != userID {
		return response.NewForbidden("video belongs to another user")
	}

	return s.db.Delete(&video).Error
}
