package europepmc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"paperscout/config"
	"paperscout/models"
	"paperscout/sources"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// Fetcher implements the source adapter for Europe PMC.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

var _ sources.Source = (*Fetcher)(nil)

// NewFetcher creates a new Europe PMC fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name returns the registry name of this source.
func (f *Fetcher) Name() string {
	return "europepmc"
}

// Search runs the query against the Europe PMC REST endpoint. Zero hits is a
// valid empty result.
func (f *Fetcher) Search(ctx context.Context, q sources.Query) ([]models.ArticleCandidate, error) {
	query := buildQuery(q)
	log := f.Logger.With(zap.String("query", query))

	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")
	params.Set("resultType", "core")
	params.Set("pageSize", fmt.Sprintf("%d", q.MaxArticles))

	searchURL := f.Config.EuropePMCBaseURL + "?" + params.Encode()
	log.Debug("querying Europe PMC API", zap.String("url", searchURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build europepmc request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query europepmc: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("europepmc returned status %d", resp.StatusCode)
	}

	var searchResponse SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResponse); err != nil {
		return nil, fmt.Errorf("decode europepmc response: %w", err)
	}

	candidates := make([]models.ArticleCandidate, 0, len(searchResponse.ResultList.Result))
	for i := range searchResponse.ResultList.Result {
		candidates = append(candidates, mapArticle(&searchResponse.ResultList.Result[i]))
	}

	log.Info("Europe PMC search finished", zap.Int("found", len(candidates)))
	return candidates, nil
}

func buildQuery(q sources.Query) string {
	terms := q.Terms()
	clauses := make([]string, 0, len(terms))
	for _, t := range terms {
		clauses = append(clauses, fmt.Sprintf("%q", t))
	}
	query := "(" + strings.Join(clauses, " OR ") + ")"

	if len(q.Authors) > 0 {
		authorClauses := make([]string, 0, len(q.Authors))
		for _, a := range q.Authors {
			authorClauses = append(authorClauses, fmt.Sprintf("AUTH:%q", a))
		}
		query += " AND (" + strings.Join(authorClauses, " OR ") + ")"
	}
	return query
}

// mapArticle converts a Europe PMC record into a candidate.
func mapArticle(article *Article) models.ArticleCandidate {
	cand := models.ArticleCandidate{
		Title:       article.Title,
		Abstract:    article.AbstractText,
		Authors:     splitAuthors(article.AuthorString),
		DOI:         models.NormalizeDOI(article.DOI),
		PublishedAt: parseDate(article.FirstPublicationDate),
		Source:      "europepmc",
	}

	if article.PMID != "" {
		cand.URL = "https://europepmc.org/article/MED/" + article.PMID
	} else if article.ID != "" {
		cand.URL = fmt.Sprintf("https://europepmc.org/article/%s/%s", article.Source, article.ID)
	}

	// Pick the first open-access PDF link as the canonical PDF URL.
	for _, u := range article.FullTextURLList.FullTextURL {
		if u.DocumentStyle == "pdf" && u.AvailabilityCode == "OA" {
			cand.PDFURL = u.URL
			break
		}
	}

	return cand
}

// splitAuthors breaks the "Smith J, Doe A." author string into names.
func splitAuthors(authorString string) []string {
	parts := strings.Split(authorString, ",")
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(strings.TrimSuffix(p, ".")); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}
