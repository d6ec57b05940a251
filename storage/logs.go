package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"paperscout/models"
)

// ExecutionLogStore is the append-only audit trail of discovery runs.
type ExecutionLogStore struct {
	db *gorm.DB
}

// NewExecutionLogStore wires a gorm.DB implementation.
func NewExecutionLogStore(db *gorm.DB) *ExecutionLogStore {
	return &ExecutionLogStore{db: db}
}

// CreateRunning inserts the running log row. Callers do this before invoking
// the orchestrator so the row exists even if the process dies mid-run.
func (s *ExecutionLogStore) CreateRunning(ctx context.Context, questionID uint, triggeredBy string) (uint, error) {
	entry := models.DiscoveryExecutionLog{
		QuestionID:  questionID,
		Status:      models.StatusRunning,
		TriggeredBy: triggeredBy,
		StartedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return 0, fmt.Errorf("create execution log: %w", err)
	}
	return entry.ID, nil
}

// Complete moves one log row from running to its terminal state. The guard
// on the current status keeps the transition single-shot.
func (s *ExecutionLogStore) Complete(ctx context.Context, logID uint, status string, counts models.RunCounts, errMsg, errDetails string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&models.DiscoveryExecutionLog{}).
		Where("id = ? AND status = ?", logID, models.StatusRunning).
		Updates(map[string]any{
			"status":                  status,
			"completed_at":            now,
			"duration_seconds":        gorm.Expr("EXTRACT(EPOCH FROM (? - started_at))", now),
			"sources_queried":         counts.SourcesQueried,
			"total_articles_found":    counts.TotalArticlesFound,
			"new_articles":            counts.NewArticles,
			"duplicate_articles":      counts.DuplicateArticles,
			"relevant_articles":       counts.RelevantArticles,
			"high_relevance_articles": counts.HighRelevanceArticles,
			"error_message":           errMsg,
			"error_details":           errDetails,
		})
	if res.Error != nil {
		return fmt.Errorf("complete execution log: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("execution log %d is not in running state", logID)
	}
	return nil
}

// ListForQuestion returns the newest log rows for a question.
func (s *ExecutionLogStore) ListForQuestion(ctx context.Context, questionID uint, limit int) ([]models.DiscoveryExecutionLog, error) {
	query := s.db.WithContext(ctx).Order("started_at desc")
	if questionID != 0 {
		query = query.Where("question_id = ?", questionID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var logs []models.DiscoveryExecutionLog
	err := query.Find(&logs).Error
	return logs, err
}

// ListStuck returns runs still marked running beyond the sanity window.
// These are crash/hang evidence for operators; the engine never repairs
// them.
func (s *ExecutionLogStore) ListStuck(ctx context.Context, olderThan time.Duration) ([]models.DiscoveryExecutionLog, error) {
	cutoff := time.Now().Add(-olderThan)
	var logs []models.DiscoveryExecutionLog
	err := s.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", models.StatusRunning, cutoff).
		Order("started_at asc").
		Find(&logs).Error
	return logs, err
}
