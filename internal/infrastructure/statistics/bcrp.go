// Package statistics fetches economic time series from the BCRP public API.
package statistics

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"

	"velvet-server/internal/domain/grounding"
	"velvet-server/internal/utils/httpclients"
)

const (
	// The API serves one series per request, so multi-series lookups fan
	// out and merge.
	periodMonths  = 12
	apiDateFormat = "2006-1"
)

// Client implements grounding.SeriesFetcher against the BCRP series API.
type Client struct {
	client  *resty.Client
	baseURL string
	log     zerolog.Logger
}

var _ grounding.SeriesFetcher = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		client:  httpclients.NewClient("bcrp").SetTimeout(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

type seriesResponse struct {
	Config struct {
		Title  string `json:"title"`
		Series []struct {
			Name string `json:"name"`
		} `json:"series"`
	} `json:"config"`
	Periods []struct {
		Name   string   `json:"name"`
		Values []string `json:"values"`
	} `json:"periods"`
}

// Fetch resolves each code concurrently and merges the results in input
// order. A code that fails is skipped; Fetch only errors when every code
// failed, so one bad code cannot blank out the rest.
func (c *Client) Fetch(ctx context.Context, codes []string) ([]grounding.Series, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	results := make([]*grounding.Series, len(codes))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			s, err := c.fetchOne(gctx, code)
			if err != nil {
				c.log.Warn().Err(err).Str("code", code).Msg("series fetch failed, skipping")
				return nil
			}
			mu.Lock()
			results[i] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]grounding.Series, 0, len(codes))
	for _, s := range results {
		if s != nil {
			out = append(out, *s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("all %d series lookups failed", len(codes))
	}
	return out, nil
}

func (c *Client) fetchOne(ctx context.Context, code string) (*grounding.Series, error) {
	now := time.Now()
	start := now.AddDate(0, -periodMonths, 0)
	url := fmt.Sprintf("%s/%s/json/%s/%s",
		c.baseURL, code, start.Format(apiDateFormat), now.Format(apiDateFormat))

	var result seriesResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch series %s: %w", code, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch series %s: status %d", code, resp.StatusCode())
	}

	name := result.Config.Title
	if name == "" && len(result.Config.Series) > 0 {
		name = result.Config.Series[0].Name
	}

	points := make([]grounding.SeriesPoint, 0, len(result.Periods))
	for _, p := range result.Periods {
		if len(p.Values) == 0 {
			continue
		}
		points = append(points, grounding.SeriesPoint{Period: p.Name, Value: p.Values[0]})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("fetch series %s: no observations", code)
	}

	return &grounding.Series{Code: code, Name: name, Points: points}, nil
}

// Health probes the API with a lightweight lookup of the given series.
func (c *Client) Health(ctx context.Context, probeCode string) string {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.fetchOne(probeCtx, probeCode); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

// Close releases the HTTP client.
func (c *Client) Close() {
	c.client.Close()
}
