package models

import "time"

// ArticleCandidate is the metadata one source returns for one article during
// a single discovery run. It is never persisted as such; the orchestrator
// materializes it into a Paper.
type ArticleCandidate struct {
	Title       string
	Abstract    string
	Authors     []string
	DOI         string
	ArxivID     string
	URL         string
	PDFURL      string
	PublishedAt *time.Time
	Source      string
}
