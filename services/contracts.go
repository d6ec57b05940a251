package services

import (
	"context"
	"time"

	"paperscout/models"
)

// The discovery engine talks to its collaborators through one narrow
// interface each, so every store can be faked independently in tests. The
// gorm implementations in package storage satisfy all of them.

// QuestionStore loads questions and records post-run schedule state.
type QuestionStore interface {
	GetByID(ctx context.Context, id uint) (*models.ResearchQuestion, error)
	GetDue(ctx context.Context, now time.Time) ([]models.ResearchQuestion, error)
	UpdateAfterRun(ctx context.Context, id uint, deltaFound, deltaMatched int, nextRunAt time.Time) error
}

// SourceRegistry resolves active sources and tracks per-source health.
type SourceRegistry interface {
	ListActive(ctx context.Context) ([]models.AvailableSource, error)
	RecordSuccess(ctx context.Context, name string, found int) error
	RecordFailure(ctx context.Context, name string) error
}

// PaperStore materializes candidates into deduplicated papers. Must be safe
// under concurrent calls for the same logical paper.
type PaperStore interface {
	GetOrCreate(ctx context.Context, cand models.ArticleCandidate) (paperID uint, wasCreated bool, err error)
}

// MatchStore upserts (paper, question) relevance rows.
type MatchStore interface {
	Upsert(ctx context.Context, paperID, questionID uint, score float64, matchedKeywords []string, reasoning, source string) (uint, error)
}

// ExecutionLogStore writes the audit trail of every run.
type ExecutionLogStore interface {
	CreateRunning(ctx context.Context, questionID uint, triggeredBy string) (uint, error)
	Complete(ctx context.Context, logID uint, status string, counts models.RunCounts, errMsg, errDetails string) error
}

// PDFResolver derives an open-access PDF URL from a DOI. Optional; a nil
// resolver disables the lookup.
type PDFResolver interface {
	GetPDFLink(ctx context.Context, doi string) (string, error)
}
