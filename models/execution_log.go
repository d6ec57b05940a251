package models

import "time"

// Execution log statuses. A log is created in StatusRunning and moved to
// exactly one terminal state by the run that created it. A row stuck in
// StatusRunning past a sanity window is the observable trace of a crashed or
// hung run; the engine surfaces it to operators and never repairs it.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Run trigger origins.
const (
	TriggerScheduler = "scheduler"
	TriggerManual    = "manual"
)

// DiscoveryExecutionLog is the audit record of one orchestrator invocation
// for one question.
type DiscoveryExecutionLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	QuestionID  uint   `json:"question_id" gorm:"index;not null"`
	Status      string `json:"status" gorm:"index;not null"`
	TriggeredBy string `json:"triggered_by" gorm:"not null"`

	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`

	SourcesQueried        int `json:"sources_queried"`
	TotalArticlesFound    int `json:"total_articles_found"`
	NewArticles           int `json:"new_articles"`
	DuplicateArticles     int `json:"duplicate_articles"`
	RelevantArticles      int `json:"relevant_articles"`
	HighRelevanceArticles int `json:"high_relevance_articles"`

	ErrorMessage string `json:"error_message,omitempty"`
	ErrorDetails string `json:"error_details,omitempty" gorm:"type:text"`
}

// TableName sets the explicit table name for GORM.
func (DiscoveryExecutionLog) TableName() string {
	return "discovery_execution_logs"
}

// RunCounts carries the per-run tallies from an orchestrator result into a
// completed execution log row.
type RunCounts struct {
	SourcesQueried        int
	TotalArticlesFound    int
	NewArticles           int
	DuplicateArticles     int
	RelevantArticles      int
	HighRelevanceArticles int
}
