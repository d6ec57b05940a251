package models

import (
	"time"

	"gorm.io/datatypes"
)

// ResearchQuestionMatch relates one Paper to one ResearchQuestion with the
// relevance verdict of the scorer. Unique on (paper, question); re-running a
// question on a known paper refreshes the row instead of duplicating it.
type ResearchQuestionMatch struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PaperID    uint `json:"paper_id" gorm:"index:idx_paper_question,unique;not null"`
	QuestionID uint `json:"question_id" gorm:"index:idx_paper_question,unique;not null"`

	Score           float64                     `json:"score"`
	MatchedKeywords datatypes.JSONSlice[string] `json:"matched_keywords" gorm:"type:jsonb"`
	Reasoning       string                      `json:"reasoning,omitempty" gorm:"type:text"`
	Source          string                      `json:"source"`
}

// TableName sets the explicit table name for GORM.
func (ResearchQuestionMatch) TableName() string {
	return "research_question_matches"
}
