// Package sources defines the uniform adapter capability every article
// source implements, plus the query terms handed to it per run.
package sources

import (
	"context"
	"strings"

	"paperscout/models"
)

// Query carries a question's search terms and the per-run article budget.
// MaxArticles is an upper bound, not a target.
type Query struct {
	Keywords    []string
	Topics      []string
	Authors     []string
	MaxArticles int
}

// Terms flattens keywords and topics into one deduplicated term list, the
// form most provider query languages want.
func (q Query) Terms() []string {
	seen := make(map[string]bool, len(q.Keywords)+len(q.Topics))
	terms := make([]string, 0, len(q.Keywords)+len(q.Topics))
	for _, t := range append(append([]string{}, q.Keywords...), q.Topics...) {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		terms = append(terms, t)
	}
	return terms
}

// Source is one queryable article provider. Implementations must return an
// empty slice (not an error) for zero results, and must bound their own
// network calls with finite timeouts.
type Source interface {
	Name() string
	Search(ctx context.Context, q Query) ([]models.ArticleCandidate, error)
}
