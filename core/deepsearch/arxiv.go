// Package deepsearch augments retrieval with freshly fetched external papers.
package deepsearch

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

const (
	// DefaultArxivURL is the arXiv Atom query endpoint
	DefaultArxivURL = "http://export.arxiv.org/api/query"
	// DefaultFetchTimeout bounds one search or download request
	DefaultFetchTimeout = 30 * time.Second

	pdfContentType = "application/pdf"
)

// Article is a search hit with the location of its full text
type Article struct {
	PDFURL   string
	Metadata model.Metadata
}

// Source searches an external corpus and downloads full texts
type Source interface {
	Search(ctx context.Context, keyword string, maxResults int) ([]Article, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ArxivSource is a Source over the arXiv API
type ArxivSource struct {
	client    *resty.Client
	searchURL string
}

// NewArxivSource creates an arXiv source. An empty searchURL uses DefaultArxivURL.
func NewArxivSource(searchURL string, timeout time.Duration) *ArxivSource {
	if searchURL == "" {
		searchURL = DefaultArxivURL
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r != nil && (r.StatusCode() >= 500 || r.StatusCode() == 429)
	})

	return &ArxivSource{client: client, searchURL: searchURL}
}

// Search returns up to maxResults articles matching keyword in any field
func (s *ArxivSource) Search(ctx context.Context, keyword string, maxResults int) ([]Article, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_query": "all:" + keyword,
			"start":        "0",
			"max_results":  strconv.Itoa(maxResults),
		}).
		Get(s.searchURL)
	if err != nil {
		return nil, helper.NewError("arxiv search", err)
	}
	if resp.IsError() {
		return nil, helper.NewError("arxiv search", fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}

	return ParseAtom(resp.Body())
}

// Fetch downloads url
func (s *ArxivSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, helper.NewError("fetch", err)
	}
	if resp.IsError() {
		return nil, helper.NewError("fetch", fmt.Errorf("unexpected status %d for %s", resp.StatusCode(), url))
	}
	return resp.Body(), nil
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string `xml:"title"`
	Published string `xml:"published"`
	Summary   string `xml:"summary"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href string `xml:"href,attr"`
		Type string `xml:"type,attr"`
	} `xml:"link"`
}

// ParseAtom reads the entries of an arXiv Atom feed that link a PDF.
// Missing fields get placeholder values.
func ParseAtom(data []byte) ([]Article, error) {
	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, helper.NewError("decode atom feed", err)
	}

	var articles []Article
	for _, entry := range feed.Entries {
		pdfURL := ""
		for _, link := range entry.Links {
			if link.Type == pdfContentType && link.Href != "" {
				pdfURL = link.Href
				break
			}
		}
		if pdfURL == "" {
			continue
		}

		articles = append(articles, Article{PDFURL: pdfURL, Metadata: entryMetadata(entry)})
	}
	return articles, nil
}

func entryMetadata(entry atomEntry) model.Metadata {
	title := strings.Join(strings.Fields(entry.Title), " ")
	if title == "" {
		title = "Unknown Title"
	}

	var authors []string
	for _, author := range entry.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) == 0 {
		authors = []string{"Unknown Author"}
	}

	published := strings.TrimSpace(entry.Published)
	if len(published) > 10 {
		published = published[:10]
	}
	if published == "" {
		published = "Unknown Date"
	}

	summary := strings.TrimSpace(entry.Summary)
	if summary == "" {
		summary = "No summary available"
	}

	return model.Metadata{
		"title":     title,
		"authors":   authors,
		"published": published,
		"summary":   summary,
	}
}
