package unpaywall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"paperscout/config"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Response is the JSON answer of the Unpaywall API.
type Response struct {
	BestOALocation struct {
		URLForPDF string `json:"url_for_pdf"`
	} `json:"best_oa_location"`
}

// Fetcher resolves open-access PDF links by DOI. The orchestrator uses it to
// derive a canonical PDF URL for candidates that arrive without one.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new Unpaywall fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// GetPDFLink fetches a free PDF link for the given DOI. An empty string with
// a nil error means Unpaywall knows no open-access copy.
func (f *Fetcher) GetPDFLink(ctx context.Context, doi string) (string, error) {
	if f.Config.UnpaywallEmail == "" {
		return "", fmt.Errorf("unpaywall email is not configured")
	}

	reqURL := fmt.Sprintf("%s/%s?email=%s", f.Config.UnpaywallBaseURL, doi, f.Config.UnpaywallEmail)
	log := f.Logger.With(zap.String("doi", doi))
	log.Debug("calling Unpaywall API", zap.String("url", reqURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build unpaywall request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unpaywall request failed with status: %d", resp.StatusCode)
	}

	var ur Response
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", err
	}

	if ur.BestOALocation.URLForPDF != "" {
		log.Debug("PDF link found via Unpaywall")
		return ur.BestOALocation.URLForPDF, nil
	}

	log.Debug("no PDF link in Unpaywall answer")
	return "", nil
}
