package deepsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Lead fracture in
      implantable pacemakers</title>
    <published>2021-03-04T12:00:00Z</published>
    <summary> Retrospective study of lead failures. </summary>
    <author><name>Jane Doe</name></author>
    <author><name>John Roe</name></author>
    <link href="http://arxiv.org/abs/2103.00001" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/2103.00001" rel="related" type="application/pdf" title="pdf"/>
  </entry>
  <entry>
    <title>No full text</title>
    <link href="http://arxiv.org/abs/2103.00002" rel="alternate" type="text/html"/>
  </entry>
  <entry>
    <link href="http://arxiv.org/pdf/2103.00003" type="application/pdf"/>
  </entry>
</feed>`

func TestParseAtom(t *testing.T) {
	t.Run("Entries with a PDF link", func(t *testing.T) {
		articles, err := ParseAtom([]byte(testFeed))
		require.NoError(t, err, "Expected ParseAtom to not return an error")
		require.Len(t, articles, 2, "Expected the entry without PDF link to be skipped")

		first := articles[0]
		assert.Equal(t, "http://arxiv.org/pdf/2103.00001", first.PDFURL, "Expected PDF link")
		assert.Equal(t, "Lead fracture in implantable pacemakers", first.Metadata["title"], "Expected whitespace folded title")
		assert.Equal(t, []string{"Jane Doe", "John Roe"}, first.Metadata["authors"], "Expected authors in order")
		assert.Equal(t, "2021-03-04", first.Metadata["published"], "Expected published date cut to the day")
		assert.Equal(t, "Retrospective study of lead failures.", first.Metadata["summary"], "Expected trimmed summary")
	})

	t.Run("Missing fields get placeholders", func(t *testing.T) {
		articles, err := ParseAtom([]byte(testFeed))
		require.NoError(t, err, "Expected ParseAtom to not return an error")
		require.Len(t, articles, 2, "Expected two articles")

		metadata := articles[1].Metadata
		assert.Equal(t, "Unknown Title", metadata["title"], "Expected title placeholder")
		assert.Equal(t, []string{"Unknown Author"}, metadata["authors"], "Expected author placeholder")
		assert.Equal(t, "Unknown Date", metadata["published"], "Expected date placeholder")
		assert.Equal(t, "No summary available", metadata["summary"], "Expected summary placeholder")
	})

	t.Run("Empty feed", func(t *testing.T) {
		articles, err := ParseAtom([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
		require.NoError(t, err, "Expected ParseAtom to not return an error")
		assert.Empty(t, articles, "Expected no articles")
	})

	t.Run("Invalid XML", func(t *testing.T) {
		_, err := ParseAtom([]byte("<feed><entry>"))
		assert.Error(t, err, "Expected error for truncated XML")
	})
}

func TestArxivSource(t *testing.T) {
	ctx := context.Background()

	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/query":
			query = r.URL.Query()
			w.Header().Set("Content-Type", "application/atom+xml")
			_, _ = w.Write([]byte(testFeed))
		case "/pdf/2103.00001":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4 test"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	source := NewArxivSource(server.URL+"/api/query", 5*time.Second)

	t.Run("Search sends the keyword query", func(t *testing.T) {
		articles, err := source.Search(ctx, "pacemaker lead fracture", 3)
		require.NoError(t, err, "Expected Search to not return an error")
		assert.Len(t, articles, 2, "Expected two articles")
		assert.Equal(t, "all:pacemaker lead fracture", query.Get("search_query"), "Expected search over all fields")
		assert.Equal(t, "0", query.Get("start"), "Expected first page")
		assert.Equal(t, "3", query.Get("max_results"), "Expected max results")
	})

	t.Run("Fetch returns the body", func(t *testing.T) {
		data, err := source.Fetch(ctx, server.URL+"/pdf/2103.00001")
		require.NoError(t, err, "Expected Fetch to not return an error")
		assert.Equal(t, "%PDF-1.4 test", string(data), "Expected PDF bytes")
	})

	t.Run("Fetch fails on not found", func(t *testing.T) {
		_, err := source.Fetch(ctx, server.URL+"/pdf/missing")
		assert.Error(t, err, "Expected error for a 404 response")
	})

	t.Run("Search fails on not found", func(t *testing.T) {
		missing := NewArxivSource(server.URL+"/missing", time.Second)
		_, err := missing.Search(ctx, "pacemaker", 1)
		assert.Error(t, err, "Expected error for a 404 response")
	})

	t.Run("Defaults", func(t *testing.T) {
		defaulted := NewArxivSource("", 0)
		assert.Equal(t, DefaultArxivURL, defaulted.searchURL, "Expected default search URL")
		assert.Equal(t, DefaultFetchTimeout, defaulted.client.GetClient().Timeout, "Expected default timeout")
	})
}
