// Package grounding assembles optional background context for generation:
// retrieved documents and economic time series. Assembly is strictly
// best-effort, a failing or slow collaborator degrades to an empty block and
// never blocks the conversation.
package grounding

import (
	"context"
	"fmt"
	"strings"
)

// Document is a retrieved text fragment relevant to the user's query.
type Document struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Source  string  `json:"source,omitempty"`
}

// SeriesPoint is a single observation of an economic series.
type SeriesPoint struct {
	Period string `json:"period"`
	Value  string `json:"value"`
}

// Series is a named economic time series with its recent observations.
type Series struct {
	Code   string        `json:"code"`
	Name   string        `json:"name"`
	Points []SeriesPoint `json:"points"`
}

// Retriever resolves a query against the referenced documents.
type Retriever interface {
	Retrieve(ctx context.Context, query string, documentRefs []string) ([]Document, error)
}

// SeriesFetcher resolves economic series codes to their recent data.
type SeriesFetcher interface {
	Fetch(ctx context.Context, codes []string) ([]Series, error)
}

// Options selects which grounding sources to consult for an exchange. Both
// default to off, grounding is opt-in per message: no document refs means no
// retrieval, no series codes means no statistics.
type Options struct {
	DocumentRefs []string
	SeriesCodes  []string
}

// MaxSeriesCodes bounds how many series one exchange may request.
const MaxSeriesCodes = 10

// Context is the assembled grounding block handed to generation.
type Context struct {
	Documents []Document
	Series    []Series
}

// Empty reports whether assembly produced nothing usable.
func (c Context) Empty() bool {
	return len(c.Documents) == 0 && len(c.Series) == 0
}

// Render formats the grounding block for inclusion in a prompt. An empty
// context renders to the empty string.
func (c Context) Render() string {
	if c.Empty() {
		return ""
	}

	var b strings.Builder
	if len(c.Documents) > 0 {
		b.WriteString("Relevant documents:\n")
		for _, d := range c.Documents {
			if d.Title != "" {
				fmt.Fprintf(&b, "- %s: %s\n", d.Title, d.Content)
			} else {
				fmt.Fprintf(&b, "- %s\n", d.Content)
			}
		}
	}
	if len(c.Series) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Economic indicators:\n")
		for _, s := range c.Series {
			fmt.Fprintf(&b, "- %s (%s):", s.Name, s.Code)
			for _, p := range s.Points {
				fmt.Fprintf(&b, " %s=%s", p.Period, p.Value)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
