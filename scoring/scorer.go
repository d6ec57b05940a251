// Package scoring talks to the relevance oracle: an LLM asked to judge how
// well one article answers one research question.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"paperscout/config"
)

// Request carries one article and one question into a scoring call.
type Request struct {
	Title    string
	Abstract string
	Authors  []string

	QuestionName     string
	Keywords         []string
	Topics           []string
	PreferredAuthors []string
}

// Result is the parsed verdict of the scorer.
type Result struct {
	Score           float64  `json:"score"`
	MatchedKeywords []string `json:"matched_keywords"`
	Reasoning       string   `json:"reasoning"`
}

// Scorer judges one candidate against one question. Implementations must
// respond within a bounded time; callers treat any error as a rejection
// (score zero), never as a run failure.
type Scorer interface {
	Score(ctx context.Context, req Request) (Result, error)
}

const systemPrompt = `You rate how relevant a scientific article is to a saved research question.
Respond with a single JSON object: {"score": <float 0..1>, "matched_keywords": [<strings>], "reasoning": <string>}.
Score bands: 0.0-0.3 not relevant, 0.3-0.5 weak, 0.5-0.7 relevant, 0.7-0.9 highly relevant, 0.9-1.0 near-perfect.
List in matched_keywords only terms from the question that the article genuinely covers.`

// LLMScorer implements Scorer against an OpenAI-compatible chat completions
// endpoint, pinned to temperature 0 for low-variance verdicts.
type LLMScorer struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Scorer = (*LLMScorer)(nil)

// NewLLMScorer builds a scorer from configuration. The HTTP client timeout
// is the bounded-response guarantee the engine relies on.
func NewLLMScorer(cfg *config.Config, logger *zap.Logger) *LLMScorer {
	return &LLMScorer{
		endpoint:   cfg.ScorerEndpoint,
		model:      cfg.ScorerModel,
		apiKey:     cfg.ScorerAPIKey,
		httpClient: &http.Client{Timeout: cfg.ScorerTimeout},
		logger:     logger,
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Score sends one article/question pair and parses the model's verdict.
func (s *LLMScorer) Score(ctx context.Context, req Request) (Result, error) {
	if s.apiKey == "" || s.endpoint == "" || s.model == "" {
		return Result{}, fmt.Errorf("scorer misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":       s.model,
		"temperature": 0,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": BuildPrompt(req)},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal scorer payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("scorer error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return Result{}, fmt.Errorf("decode scorer response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return Result{}, fmt.Errorf("scorer returned no choices")
	}

	result, err := ParseScoreResponse(chat.Choices[0].Message.Content)
	if err != nil {
		return Result{}, fmt.Errorf("parse scorer verdict: %w", err)
	}
	return result, nil
}

// BuildPrompt renders the user message for one scoring request.
func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research question: %s\n", req.QuestionName)
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(req.Keywords, ", "))
	}
	if len(req.Topics) > 0 {
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(req.Topics, ", "))
	}
	if len(req.PreferredAuthors) > 0 {
		fmt.Fprintf(&b, "Preferred authors: %s\n", strings.Join(req.PreferredAuthors, ", "))
	}
	fmt.Fprintf(&b, "\nArticle title: %s\n", req.Title)
	if len(req.Authors) > 0 {
		fmt.Fprintf(&b, "Article authors: %s\n", strings.Join(req.Authors, ", "))
	}
	if req.Abstract != "" {
		fmt.Fprintf(&b, "Abstract: %s\n", req.Abstract)
	}
	return b.String()
}
