package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ErrInvalidQuestion wraps every validation failure, so handlers can map
// them to a 400 without string matching.
var ErrInvalidQuestion = errors.New("invalid research question")

// Schedule frequencies supported by research questions.
const (
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyMonthly  = "monthly"
	FrequencyOnDemand = "on-demand"
)

// SourceWildcard in a question's source selection expands to every
// currently-active registry source.
const SourceWildcard = "*"

// ResearchQuestion is a saved discovery specification owned by a user.
// The scheduler picks it up whenever next_run_at has passed.
type ResearchQuestion struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner string `json:"owner" gorm:"index:idx_owner_name,unique;not null"`
	Name  string `json:"name" gorm:"index:idx_owner_name,unique;not null"`

	Keywords         datatypes.JSONSlice[string] `json:"keywords" gorm:"type:jsonb"`
	Topics           datatypes.JSONSlice[string] `json:"topics" gorm:"type:jsonb"`
	PreferredAuthors datatypes.JSONSlice[string] `json:"preferred_authors" gorm:"type:jsonb"`

	// Sources holds explicit source names, or the single wildcard entry "*".
	Sources datatypes.JSONSlice[string] `json:"sources" gorm:"type:jsonb"`

	MinRelevance float64 `json:"min_relevance" gorm:"default:0.5"`
	MaxArticles  int     `json:"max_articles" gorm:"default:50"`

	Frequency  string                      `json:"frequency" gorm:"column:schedule_frequency;index;not null"`
	TimeOfDay  string                      `json:"time_of_day,omitempty"` // "15:04", empty means midnight
	DaysOfWeek datatypes.JSONSlice[string] `json:"days_of_week,omitempty" gorm:"type:jsonb"`

	ArticlesFoundCount   int64 `json:"articles_found_count"`
	ArticlesMatchedCount int64 `json:"articles_matched_count"`

	NextRunAt time.Time `json:"next_run_at" gorm:"index"`
	IsActive  bool      `json:"is_active" gorm:"default:true;index"`
}

// TableName sets the explicit table name for GORM.
func (ResearchQuestion) TableName() string {
	return "research_questions"
}

// Validate rejects configurations the engine cannot run. Called on create
// and on every user edit, so invalid questions never reach the scheduler.
func (q *ResearchQuestion) Validate() error {
	if err := q.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	return nil
}

func (q *ResearchQuestion) validate() error {
	if q.Name == "" {
		return fmt.Errorf("question name is required")
	}
	if len(q.Keywords) == 0 && len(q.Topics) == 0 {
		return fmt.Errorf("at least one keyword or topic is required")
	}
	if len(q.Sources) == 0 {
		return fmt.Errorf("source selection must not be empty")
	}
	if q.MinRelevance < 0 || q.MinRelevance > 1 {
		return fmt.Errorf("min_relevance must be within [0,1], got %g", q.MinRelevance)
	}
	switch q.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyOnDemand:
	default:
		return fmt.Errorf("unknown schedule frequency %q", q.Frequency)
	}
	if q.TimeOfDay != "" {
		if _, err := time.Parse("15:04", q.TimeOfDay); err != nil {
			return fmt.Errorf("time_of_day must be HH:MM: %w", err)
		}
	}
	for _, day := range q.DaysOfWeek {
		if _, err := ParseWeekday(day); err != nil {
			return err
		}
	}
	return nil
}

// Weekdays parses the stored day names; invalid entries are impossible for
// validated questions.
func (q *ResearchQuestion) Weekdays() []time.Weekday {
	days := make([]time.Weekday, 0, len(q.DaysOfWeek))
	for _, name := range q.DaysOfWeek {
		if d, err := ParseWeekday(name); err == nil {
			days = append(days, d)
		}
	}
	return days
}
