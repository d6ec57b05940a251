package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoreResponsePlainJSON(t *testing.T) {
	res, err := ParseScoreResponse(`{"score": 0.85, "matched_keywords": ["crispr", "gene editing"], "reasoning": "Direct hit."}`)
	require.NoError(t, err)
	assert.Equal(t, 0.85, res.Score)
	assert.Equal(t, []string{"crispr", "gene editing"}, res.MatchedKeywords)
	assert.Equal(t, "Direct hit.", res.Reasoning)
}

func TestParseScoreResponseCodeFence(t *testing.T) {
	text := "```json\n{\"score\": 0.4, \"matched_keywords\": [], \"reasoning\": \"tangential\"}\n```"
	res, err := ParseScoreResponse(text)
	require.NoError(t, err)
	assert.Equal(t, 0.4, res.Score)
	assert.Empty(t, res.MatchedKeywords)
}

func TestParseScoreResponseBareFence(t *testing.T) {
	text := "```\n{\"score\": 0.9, \"reasoning\": \"x\"}\n```"
	res, err := ParseScoreResponse(text)
	require.NoError(t, err)
	assert.Equal(t, 0.9, res.Score)
}

func TestParseScoreResponseSurroundingProse(t *testing.T) {
	text := `Sure! Here is my assessment:

{"score": 0.72, "matched_keywords": ["transformer"], "reasoning": "strong match"}

Let me know if you need anything else.`
	res, err := ParseScoreResponse(text)
	require.NoError(t, err)
	assert.Equal(t, 0.72, res.Score)
	assert.Equal(t, []string{"transformer"}, res.MatchedKeywords)
}

func TestParseScoreResponseStringScore(t *testing.T) {
	res, err := ParseScoreResponse(`{"score": "0.65", "reasoning": "ok"}`)
	require.NoError(t, err)
	assert.Equal(t, 0.65, res.Score)
}

func TestParseScoreResponseClampsOutOfRange(t *testing.T) {
	res, err := ParseScoreResponse(`{"score": 1.7, "reasoning": "overexcited"}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)

	res, err = ParseScoreResponse(`{"score": -0.3, "reasoning": "negative"}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
}

func TestParseScoreResponseKeywordsNotAList(t *testing.T) {
	res, err := ParseScoreResponse(`{"score": 0.5, "matched_keywords": "crispr", "reasoning": "r"}`)
	require.NoError(t, err)
	assert.Empty(t, res.MatchedKeywords)

	res, err = ParseScoreResponse(`{"score": 0.5, "matched_keywords": {"a": 1}, "reasoning": "r"}`)
	require.NoError(t, err)
	assert.Empty(t, res.MatchedKeywords)
}

func TestParseScoreResponseKeywordListWithJunk(t *testing.T) {
	res, err := ParseScoreResponse(`{"score": 0.5, "matched_keywords": ["a", 3, "  b  ", ""], "reasoning": "r"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.MatchedKeywords)
}

func TestParseScoreResponseMissingScore(t *testing.T) {
	_, err := ParseScoreResponse(`{"reasoning": "forgot the score"}`)
	assert.Error(t, err)
}

func TestParseScoreResponseNonNumericScore(t *testing.T) {
	_, err := ParseScoreResponse(`{"score": "high", "reasoning": "r"}`)
	assert.Error(t, err)
}

func TestParseScoreResponseNoJSON(t *testing.T) {
	_, err := ParseScoreResponse("I think this paper is quite relevant.")
	assert.Error(t, err)

	_, err = ParseScoreResponse("")
	assert.Error(t, err)
}

func TestParseScoreResponseMalformedJSON(t *testing.T) {
	_, err := ParseScoreResponse(`{"score": 0.5, "reasoning": `)
	assert.Error(t, err)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-1))
	assert.Equal(t, 0.0, ClampScore(0))
	assert.Equal(t, 0.5, ClampScore(0.5))
	assert.Equal(t, 1.0, ClampScore(1))
	assert.Equal(t, 1.0, ClampScore(42))
}
