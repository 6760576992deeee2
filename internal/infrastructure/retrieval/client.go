// Package retrieval queries the document search backend for grounding
// fragments.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"velvet-server/internal/domain/grounding"
	"velvet-server/internal/utils/httpclients"
)

const searchPath = "/search"

// Client implements grounding.Retriever against the retrieval service.
type Client struct {
	client  *resty.Client
	baseURL string
	log     zerolog.Logger
}

var _ grounding.Retriever = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		client:  httpclients.NewClient("retrieval").SetTimeout(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

type searchRequest struct {
	Query        string   `json:"query"`
	DocumentRefs []string `json:"document_refs"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
		Source  string  `json:"source"`
	} `json:"results"`
}

// Retrieve resolves the query against the referenced documents. Errors
// propagate to the assembler, which treats them as an empty contribution.
func (c *Client) Retrieve(ctx context.Context, query string, documentRefs []string) ([]grounding.Document, error) {
	var result searchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(searchRequest{Query: query, DocumentRefs: documentRefs}).
		SetResult(&result).
		Post(c.baseURL + searchPath)
	if err != nil {
		return nil, fmt.Errorf("retrieval search: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("retrieval search: status %d", resp.StatusCode())
	}

	docs := make([]grounding.Document, 0, len(result.Results))
	for _, r := range result.Results {
		if r.Content == "" {
			continue
		}
		docs = append(docs, grounding.Document{
			Title:   r.Title,
			Content: r.Content,
			Score:   r.Score,
			Source:  r.Source,
		})
	}
	return docs, nil
}

// Close releases the HTTP client.
func (c *Client) Close() {
	c.client.Close()
}
