package services

import (
	"time"

	"formcoach/internal/models"
	"formcoach/pkg/logger"
	"gorm.io/gorm"
)

// AIUsageService tracks model API calls for cost and usage statistics.
type AIUsageService struct {
	db *gorm.DB
}

func NewAIUsageService(db *gorm.DB) *AIUsageService {
	return &AIUsageService{db: db}
}

func usageEntry(stage, provider, model string, latency time.Duration, callErr error) *models.AIUsageLog {
	entry := &models.AIUsageLog{
		Stage:     stage,
		Provider:  provider,
		Model:     model,
		LatencyMs: latency.Milliseconds(),
		Success:   callErr == nil,
		CreatedAt: time.Now(),
	}
	if callErr != nil {
		msg := callErr.Error()
		if len(msg) > 500 {
			msg = msg[:500]
		}
		entry.ErrorMessage = msg
	}
	return entry
}

// Record saves a usage log entry asynchronously.
func (s *AIUsageService) Record(entry *models.AIUsageLog) {
	if s.db == nil {
		return
	}
	go func() {
		if err := s.db.Create(entry).Error; err != nil {
			logger.Warn().Err(err).Msg("failed to record AI usage")
		}
	}()
}

// UsageStats holds aggregated AI usage statistics.
type UsageStats struct {
	TotalCalls       int64   `json:"total_calls"`
	TotalTokens      int64   `json:"total_tokens"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
	SuccessRate      float64 `json:"success_rate"`
	SuccessCount     int64   `json:"success_count"`
	FailureCount     int64   `json:"failure_count"`
}

// GetStats returns aggregated usage statistics for the given date range,
// optionally scoped to one stage.
func (s *AIUsageService) GetStats(startDate, endDate, stage string) (*UsageStats, error) {
	query := s.db.Model(&models.AIUsageLog{})
	if startDate != "" {
		query = query.Where("created_at >= ?", startDate)
	}
	if endDate != "" {
		query = query.Where("created_at <= ?", endDate+" 23:59:59")
	}
	if stage != "" {
		query = query.Where("stage = ?", stage)
	}

	var stats UsageStats
	err := query.Select(
		"COUNT(*) as total_calls, " +
			"COALESCE(SUM(total_tokens), 0) as total_tokens, " +
			"COALESCE(SUM(prompt_tokens), 0) as prompt_tokens, " +
			"COALESCE(SUM(completion_tokens), 0) as completion_tokens, " +
			"COALESCE(AVG(latency_ms), 0) as avg_latency_ms, " +
			"COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0) as success_count, " +
			"COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0) as failure_count",
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	if stats.TotalCalls > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalCalls) * 100
	}
	return &stats, nil
}
