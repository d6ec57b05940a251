package pubmed

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

// Fetcher wraps the NCBI E-utilities (esearch + esummary).
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

var _ sources.Source = (*Fetcher)(nil)

// NewFetcher creates a new PubMed fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name returns the registry name of this source.
func (f *Fetcher) Name() string {
	return "pubmed"
}

// Search runs esearch for PMIDs and esummary for their metadata. Zero hits
// is a valid empty result.
func (f *Fetcher) Search(ctx context.Context, q sources.Query) ([]models.ArticleCandidate, error) {
	term := buildTerm(q)
	log := f.Logger.With(zap.String("term", term))

	ids, err := f.searchIDs(ctx, term, q.MaxArticles)
	if err != nil {
		return nil, fmt.Errorf("pubmed esearch: %w", err)
	}
	if len(ids) == 0 {
		log.Debug("PubMed esearch returned no ids")
		return []models.ArticleCandidate{}, nil
	}

	candidates, err := f.fetchSummaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("pubmed esummary: %w", err)
	}

	log.Info("PubMed search finished", zap.Int("found", len(candidates)))
	return candidates, nil
}

// buildTerm combines keyword/topic terms into a Title/Abstract query,
// optionally restricted by preferred authors.
func buildTerm(q sources.Query) string {
	terms := q.Terms()
	clauses := make([]string, 0, len(terms))
	for _, t := range terms {
		clauses = append(clauses, fmt.Sprintf("%q[Title/Abstract]", t))
	}
	term := "(" + strings.Join(clauses, " OR ") + ")"

	if len(q.Authors) > 0 {
		authorClauses := make([]string, 0, len(q.Authors))
		for _, a := range q.Authors {
			authorClauses = append(authorClauses, fmt.Sprintf("%q[Author]", a))
		}
		term += " AND (" + strings.Join(authorClauses, " OR ") + ")"
	}
	return term
}

func (f *Fetcher) searchIDs(ctx context.Context, term string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmode", "json")
	params.Set("retmax", fmt.Sprintf("%d", limit))
	params.Set("sort", "date")
	f.applyIdentity(params)

	searchURL := f.Config.PubMedBaseURL + "/esearch.fcgi?" + params.Encode()

	var parsed ESearchResponse
	if err := f.getJSON(ctx, searchURL, &parsed); err != nil {
		return nil, err
	}
	return parsed.ESearchResult.IdList, nil
}

func (f *Fetcher) fetchSummaries(ctx context.Context, ids []string) ([]models.ArticleCandidate, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "json")
	f.applyIdentity(params)

	summaryURL := f.Config.PubMedBaseURL + "/esummary.fcgi?" + params.Encode()

	var parsed ESummaryResponse
	if err := f.getJSON(ctx, summaryURL, &parsed); err != nil {
		return nil, err
	}

	candidates := make([]models.ArticleCandidate, 0, len(ids))
	for _, id := range ids {
		raw, ok := parsed.Result[id]
		if !ok {
			continue
		}
		var doc DocSummary
		if err := json.Unmarshal(raw, &doc); err != nil {
			f.Logger.Warn("skipping unparsable esummary record",
				zap.String("pmid", id), zap.Error(err))
			continue
		}
		candidates = append(candidates, mapSummary(id, doc))
	}
	return candidates, nil
}

// applyIdentity attaches the tool/email/api-key parameters NCBI asks
// automated clients to send.
func (f *Fetcher) applyIdentity(params url.Values) {
	if f.Config.PubMedTool != "" {
		params.Set("tool", f.Config.PubMedTool)
	}
	if f.Config.PubMedEmail != "" {
		params.Set("email", f.Config.PubMedEmail)
	}
	if f.Config.PubMedAPIKey != "" {
		params.Set("api_key", f.Config.PubMedAPIKey)
	}
}

func (f *Fetcher) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mapSummary(pmid string, doc DocSummary) models.ArticleCandidate {
	authors := make([]string, 0, len(doc.Authors))
	for _, a := range doc.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	cand := models.ArticleCandidate{
		Title:       strings.TrimSpace(doc.Title),
		Authors:     authors,
		URL:         "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
		PublishedAt: parsePubDate(doc.PubDate),
		Source:      "pubmed",
	}

	for _, id := range doc.ArticleIDs {
		if strings.EqualFold(id.IDType, "doi") {
			cand.DOI = models.NormalizeDOI(id.Value)
			break
		}
	}
	// Some records only carry the DOI in elocationid ("doi: 10.x/y").
	if cand.DOI == "" && strings.HasPrefix(strings.ToLower(doc.ELocationID), "doi:") {
		cand.DOI = models.NormalizeDOI(doc.ELocationID)
	}

	return cand
}

func parsePubDate(value string) *time.Time {
	layouts := []string{"2006 Jan 2", "2006 Jan", "2006"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return &t
		}
	}
	return nil
}
