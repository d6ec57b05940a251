package arxiv

import (
	"context"
	"encoding/xml"
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

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Fetcher queries the arXiv export API (Atom feed).
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

var _ sources.Source = (*Fetcher)(nil)

// NewFetcher creates a new arXiv fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name returns the registry name of this source.
func (f *Fetcher) Name() string {
	return "arxiv"
}

// feed mirrors the subset of the arXiv Atom response the engine needs.
type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []author `xml:"author"`
	Links     []link   `xml:"link"`
}

type author struct {
	Name string `xml:"name"`
}

type link struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// Search runs one query against the export API and maps entries to
// candidates. Zero hits is a valid empty result.
func (f *Fetcher) Search(ctx context.Context, q sources.Query) ([]models.ArticleCandidate, error) {
	log := f.Logger.With(zap.Strings("terms", q.Terms()))

	searchURL := f.buildQueryURL(q)
	log.Debug("querying arXiv export API", zap.String("url", searchURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build arxiv request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query arxiv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned status %d", resp.StatusCode)
	}

	var parsed feed
	if err := xml.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}

	candidates := make([]models.ArticleCandidate, 0, len(parsed.Entries))
	for _, e := range parsed.Entries {
		candidates = append(candidates, mapEntry(e))
	}

	log.Info("arXiv search finished", zap.Int("found", len(candidates)))
	return candidates, nil
}

func (f *Fetcher) buildQueryURL(q sources.Query) string {
	clauses := make([]string, 0, len(q.Terms())+len(q.Authors))
	for _, term := range q.Terms() {
		clauses = append(clauses, fmt.Sprintf(`all:%q`, term))
	}
	for _, a := range q.Authors {
		clauses = append(clauses, fmt.Sprintf(`au:%q`, a))
	}

	params := url.Values{}
	params.Set("search_query", strings.Join(clauses, " OR "))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	params.Set("max_results", fmt.Sprintf("%d", q.MaxArticles))

	return f.Config.ArxivBaseURL + "?" + params.Encode()
}

func mapEntry(e entry) models.ArticleCandidate {
	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	cand := models.ArticleCandidate{
		Title:       collapseWhitespace(e.Title),
		Abstract:    collapseWhitespace(e.Summary),
		Authors:     authors,
		ArxivID:     models.NormalizeArxivID(e.ID),
		URL:         strings.TrimSpace(e.ID),
		PublishedAt: parsePublished(e.Published),
		Source:      "arxiv",
	}

	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			cand.PDFURL = l.Href
			break
		}
	}
	// The abs URL always converts to a canonical PDF URL.
	if cand.PDFURL == "" && strings.Contains(cand.URL, "/abs/") {
		cand.PDFURL = strings.Replace(cand.URL, "/abs/", "/pdf/", 1)
	}

	return cand
}

func parsePublished(value string) *time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return nil
	}
	return &t
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
