package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDOI(t *testing.T) {
	assert.Equal(t, "10.1000/xyz123", NormalizeDOI("10.1000/xyz123"))
	assert.Equal(t, "10.1000/xyz123", NormalizeDOI("https://doi.org/10.1000/XYZ123"))
	assert.Equal(t, "10.1000/xyz123", NormalizeDOI("doi:10.1000/xyz123"))
	assert.Equal(t, "10.1000/xyz123", NormalizeDOI("  10.1000/XYZ123  "))
	assert.Equal(t, "", NormalizeDOI(""))
}

func TestNormalizeArxivID(t *testing.T) {
	assert.Equal(t, "2501.00001", NormalizeArxivID("2501.00001"))
	assert.Equal(t, "2501.00001", NormalizeArxivID("arXiv:2501.00001"))
	assert.Equal(t, "2501.00001", NormalizeArxivID("2501.00001v3"))
	assert.Equal(t, "2501.00001", NormalizeArxivID("https://arxiv.org/abs/2501.00001v2"))
	// "v" followed by non-digits is part of the id, not a version suffix.
	assert.Equal(t, "cs.lg/0112017", NormalizeArxivID("cs.LG/0112017"))
}

func TestFingerprintPrefersDOI(t *testing.T) {
	c := ArticleCandidate{
		Title:   "Some Title",
		DOI:     "https://doi.org/10.1000/ABC",
		ArxivID: "2501.00001",
	}
	assert.Equal(t, "doi:10.1000/abc", c.Fingerprint())
}

func TestFingerprintFallsBackToArxiv(t *testing.T) {
	c := ArticleCandidate{Title: "Some Title", ArxivID: "arXiv:2501.00001v2"}
	assert.Equal(t, "arxiv:2501.00001", c.Fingerprint())
}

func TestFingerprintTitleAuthorHash(t *testing.T) {
	a := ArticleCandidate{
		Title:   "Attention Is All You Need",
		Authors: []string{"Vaswani, A.", "Shazeer, N."},
	}
	b := ArticleCandidate{
		Title:   "  attention is ALL you need!! ",
		Authors: []string{"shazeer n", "vaswani a"},
	}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Contains(t, a.Fingerprint(), "fp:")
}

func TestFingerprintDistinguishesDifferentPapers(t *testing.T) {
	a := ArticleCandidate{Title: "Paper One", Authors: []string{"X"}}
	b := ArticleCandidate{Title: "Paper Two", Authors: []string{"X"}}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintSameDOIDifferentSpelling(t *testing.T) {
	a := ArticleCandidate{DOI: "10.1000/xyz"}
	b := ArticleCandidate{DOI: "DOI:10.1000/XYZ"}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}
