package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paperscout/config"
	"paperscout/sources"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2501.00001v2</id>
    <title>Efficient   Gene Editing
      with CRISPR</title>
    <summary>We present a method.</summary>
    <published>2025-01-02T09:00:00Z</published>
    <author><name>Jane Doe</name></author>
    <author><name>John Roe</name></author>
    <link href="http://arxiv.org/abs/2501.00001v2" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/2501.00001v2" rel="related" title="pdf" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2501.00002v1</id>
    <title>Another Paper</title>
    <summary>No PDF link in the feed.</summary>
    <published>not-a-date</published>
    <author><name>Max Mustermann</name></author>
    <link href="http://arxiv.org/abs/2501.00002v1" rel="alternate" type="text/html"/>
  </entry>
</feed>`

func newTestFetcher(baseURL string) *Fetcher {
	return NewFetcher(&config.Config{ArxivBaseURL: baseURL}, zap.NewNop())
}

func TestSearchParsesFeed(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	f := newTestFetcher(server.URL)
	candidates, err := f.Search(context.Background(), sources.Query{
		Keywords:    []string{"crispr"},
		Topics:      []string{"gene editing"},
		Authors:     []string{"Doe"},
		MaxArticles: 10,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Contains(t, gotQuery, `all:"crispr"`)
	assert.Contains(t, gotQuery, `all:"gene editing"`)
	assert.Contains(t, gotQuery, `au:"Doe"`)

	first := candidates[0]
	assert.Equal(t, "Efficient Gene Editing with CRISPR", first.Title)
	assert.Equal(t, "2501.00001", first.ArxivID)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, first.Authors)
	assert.Equal(t, "http://arxiv.org/pdf/2501.00001v2", first.PDFURL)
	assert.Equal(t, "arxiv", first.Source)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, 2025, first.PublishedAt.Year())

	// No explicit PDF link: derived from the abs URL. Bad date: dropped.
	second := candidates[1]
	assert.Equal(t, "http://arxiv.org/pdf/2501.00002v1", second.PDFURL)
	assert.Nil(t, second.PublishedAt)
}

func TestSearchEmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer server.Close()

	candidates, err := newTestFetcher(server.URL).Search(context.Background(), sources.Query{MaxArticles: 5})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSearchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestFetcher(server.URL).Search(context.Background(), sources.Query{MaxArticles: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSearchMalformedXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not xml"))
	}))
	defer server.Close()

	_, err := newTestFetcher(server.URL).Search(context.Background(), sources.Query{MaxArticles: 5})
	assert.Error(t, err)
}
