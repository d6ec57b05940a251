package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"paperscout/models"
)

// QuestionStore persists research questions and their schedule state.
type QuestionStore struct {
	db *gorm.DB
}

// NewQuestionStore wires a gorm.DB implementation.
func NewQuestionStore(db *gorm.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

// GetByID loads one question.
func (s *QuestionStore) GetByID(ctx context.Context, id uint) (*models.ResearchQuestion, error) {
	var q models.ResearchQuestion
	if err := s.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// GetDue returns every active, non-on-demand question whose next_run_at has
// passed. This is the scheduler's entire selection logic.
func (s *QuestionStore) GetDue(ctx context.Context, now time.Time) ([]models.ResearchQuestion, error) {
	var due []models.ResearchQuestion
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("schedule_frequency <> ?", models.FrequencyOnDemand).
		Where("next_run_at <= ?", now).
		Find(&due).Error
	return due, err
}

// UpdateAfterRun advances the schedule and bumps the cumulative counters in
// one atomic statement, so concurrent runs never lose increments.
func (s *QuestionStore) UpdateAfterRun(ctx context.Context, id uint, deltaFound, deltaMatched int, nextRunAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.ResearchQuestion{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"articles_found_count":   gorm.Expr("articles_found_count + ?", deltaFound),
			"articles_matched_count": gorm.Expr("articles_matched_count + ?", deltaMatched),
			"next_run_at":            nextRunAt,
		}).Error
}

// Create validates and persists a new question, computing its first
// next_run_at from the schedule.
func (s *QuestionStore) Create(ctx context.Context, q *models.ResearchQuestion) error {
	if err := q.Validate(); err != nil {
		return err
	}
	q.NextRunAt = models.ComputeNextRun(q.Frequency, q.TimeOfDay, q.Weekdays(), time.Now())
	return s.db.WithContext(ctx).Create(q).Error
}

// Save re-validates and persists an edited question, recomputing the
// schedule in case frequency or time-of-day changed.
func (s *QuestionStore) Save(ctx context.Context, q *models.ResearchQuestion) error {
	if err := q.Validate(); err != nil {
		return err
	}
	q.NextRunAt = models.ComputeNextRun(q.Frequency, q.TimeOfDay, q.Weekdays(), time.Now())
	return s.db.WithContext(ctx).Save(q).Error
}

// List returns questions, optionally filtered by owner.
func (s *QuestionStore) List(ctx context.Context, owner string) ([]models.ResearchQuestion, error) {
	query := s.db.WithContext(ctx).Model(&models.ResearchQuestion{})
	if owner != "" {
		query = query.Where("owner = ?", owner)
	}
	var questions []models.ResearchQuestion
	err := query.Order("created_at desc").Find(&questions).Error
	return questions, err
}

// Delete removes a question permanently.
func (s *QuestionStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.ResearchQuestion{}, id).Error
}
