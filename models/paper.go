package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Paper is the durable, deduplicated record of an article discovered by any
// question through any source. Identified primarily by DOI or arXiv id,
// falling back to a normalized title+author fingerprint.
type Paper struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DOI     string `json:"doi,omitempty" gorm:"index"`
	ArxivID string `json:"arxiv_id,omitempty" gorm:"index"`

	// Fingerprint is the normalized title+author hash and the unique dedup
	// key at the database level; concurrent creates for the same logical
	// paper collapse onto it via an insert-on-conflict.
	Fingerprint string `json:"-" gorm:"uniqueIndex;not null"`

	Title    string `json:"title" gorm:"not null"`
	Abstract string `json:"abstract,omitempty" gorm:"type:text"`
	Authors  string `json:"authors,omitempty"`

	URL         string     `json:"url,omitempty"`
	PDFURL      string     `json:"pdf_url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// DiscoveredVia records the first source that surfaced this paper.
	DiscoveredVia string `json:"discovered_via,omitempty" gorm:"index"`
}

// TableName sets the explicit table name for GORM.
func (Paper) TableName() string {
	return "papers"
}

// NormalizeDOI strips URL prefixes and lowercases a DOI for comparison.
func NormalizeDOI(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "https://doi.org/")
	s = strings.TrimPrefix(s, "http://doi.org/")
	s = strings.TrimPrefix(s, "doi:")
	return strings.TrimSpace(s)
}

// NormalizeArxivID reduces arXiv identifiers of any spelling
// ("arXiv:2501.00001v2", abs URLs) to the bare versionless id.
func NormalizeArxivID(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "https://arxiv.org/abs/")
	s = strings.TrimPrefix(s, "http://arxiv.org/abs/")
	s = strings.TrimPrefix(s, "arxiv:")
	if i := strings.LastIndex(s, "v"); i > 0 {
		if version := s[i+1:]; version != "" && isDigits(version) {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// Fingerprint derives the stable dedup key for a candidate: the DOI when
// present, else the arXiv id, else a hash over the normalized title and the
// sorted author set. The same paper seen via different sources or URLs maps
// to the same fingerprint.
func (c *ArticleCandidate) Fingerprint() string {
	if doi := NormalizeDOI(c.DOI); doi != "" {
		return "doi:" + doi
	}
	if id := NormalizeArxivID(c.ArxivID); id != "" {
		return "arxiv:" + id
	}

	title := normalizeText(c.Title)
	authors := make([]string, 0, len(c.Authors))
	for _, a := range c.Authors {
		if n := normalizeText(a); n != "" {
			authors = append(authors, n)
		}
	}
	sort.Strings(authors)

	sum := sha256.Sum256([]byte(title + "|" + strings.Join(authors, ",")))
	return "fp:" + hex.EncodeToString(sum[:16])
}

func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
