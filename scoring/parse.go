package scoring

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The scorer is an external text generator, so its JSON frequently arrives
// wrapped in markdown fences or a bit of prose. All leniency lives here:
// callers only ever see a clean Result or an error.
var (
	codeFenceRegex = regexp.MustCompile("(?s)`{3}(?:json)?\\s*\\n?([\\s\\S]*?)\\n?`{3}")
	objectRegex    = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// ParseScoreResponse extracts a scoring verdict from raw model output.
// The score is clamped into [0,1]; a matched_keywords value that is not a
// list of strings is coerced to empty.
func ParseScoreResponse(text string) (Result, error) {
	payload := extractJSON(text)
	if payload == "" {
		return Result{}, fmt.Errorf("no JSON object in scorer response")
	}

	var raw struct {
		Score           any    `json:"score"`
		MatchedKeywords any    `json:"matched_keywords"`
		Reasoning       string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Result{}, fmt.Errorf("unmarshal scorer response: %w", err)
	}

	score, err := coerceScore(raw.Score)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Score:           ClampScore(score),
		MatchedKeywords: coerceKeywords(raw.MatchedKeywords),
		Reasoning:       strings.TrimSpace(raw.Reasoning),
	}, nil
}

// ClampScore forces a score into [0,1].
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// extractJSON strips markdown code fences, then falls back to locating the
// outermost JSON object inside mixed prose.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)

	if m := codeFenceRegex.FindStringSubmatch(trimmed); m != nil {
		trimmed = strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed
	}
	return objectRegex.FindString(trimmed)
}

func coerceScore(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("score %q is not numeric", t)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("scorer response has no score field")
	default:
		return 0, fmt.Errorf("score has unexpected type %T", v)
	}
}

func coerceKeywords(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	keywords := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			keywords = append(keywords, strings.TrimSpace(s))
		}
	}
	return keywords
}
