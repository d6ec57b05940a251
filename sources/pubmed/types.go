package pubmed

import "encoding/json"

// ESearchResponse is the top-level structure of an esearch JSON reply.
type ESearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IdList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// ESummaryResponse is the top-level structure of an esummary JSON reply.
// The result object maps PMIDs to document summaries; it also carries a
// "uids" array entry, which is why values stay raw until decoded per id.
type ESummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

// DocSummary is a single esummary document record.
type DocSummary struct {
	UID         string      `json:"uid"`
	Title       string      `json:"title"`
	PubDate     string      `json:"pubdate"`
	Authors     []DocAuthor `json:"authors"`
	ELocationID string      `json:"elocationid"`
	ArticleIDs  []ArticleID `json:"articleids"`
}

// DocAuthor is one author entry in a document summary.
type DocAuthor struct {
	Name string `json:"name"`
}

// ArticleID carries one external identifier (doi, pmc, ...) of a document.
type ArticleID struct {
	IDType string `json:"idtype"`
	Value  string `json:"value"`
}
