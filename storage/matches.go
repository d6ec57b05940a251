package storage

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paperscout/models"
)

// MatchStore persists (paper, question) relevance relationships.
type MatchStore struct {
	db *gorm.DB
}

// NewMatchStore wires a gorm.DB implementation.
func NewMatchStore(db *gorm.DB) *MatchStore {
	return &MatchStore{db: db}
}

// Upsert inserts or refreshes the match row keyed on (paper, question).
// Re-discovering a known paper updates score, keywords, reasoning and source
// instead of creating a duplicate.
func (s *MatchStore) Upsert(ctx context.Context, paperID, questionID uint, score float64, matchedKeywords []string, reasoning, source string) (uint, error) {
	match := models.ResearchQuestionMatch{
		PaperID:         paperID,
		QuestionID:      questionID,
		Score:           score,
		MatchedKeywords: datatypes.NewJSONSlice(matchedKeywords),
		Reasoning:       reasoning,
		Source:          source,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "paper_id"}, {Name: "question_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"score":            score,
			"matched_keywords": match.MatchedKeywords,
			"reasoning":        reasoning,
			"source":           source,
			"updated_at":       gorm.Expr("NOW()"),
		}),
	}).Create(&match).Error
	if err != nil {
		return 0, fmt.Errorf("upsert match: %w", err)
	}
	return match.ID, nil
}

// ListForQuestion returns the matches of one question, best first.
func (s *MatchStore) ListForQuestion(ctx context.Context, questionID uint, limit int) ([]models.ResearchQuestionMatch, error) {
	query := s.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("score desc, created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var matches []models.ResearchQuestionMatch
	err := query.Find(&matches).Error
	return matches, err
}
