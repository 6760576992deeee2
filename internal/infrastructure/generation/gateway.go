// Package generation talks to the vLLM backend over its OpenAI-compatible
// completions API.
package generation

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"velvet-server/internal/config"
	"velvet-server/internal/domain/exchange"
	"velvet-server/internal/utils/httpclients"
)

const (
	completionsPath = "/v1/completions"
	healthPath      = "/health"

	StatusHealthy        = "healthy"
	StatusUnhealthy      = "unhealthy"
	StatusNotInitialized = "not_initialized"
)

// Gateway generates replies against the model backend. Generate never
// returns an error: any backend failure produces a deterministic fallback
// reply so the conversation pipeline always has something to persist.
type Gateway struct {
	client      *resty.Client
	baseURL     string
	model       string
	maxTokens   int
	temperature float32
	topP        float32
	initialized atomic.Bool
	log         zerolog.Logger
}

var _ exchange.Generator = (*Gateway)(nil)

func NewGateway(cfg *config.Config, log zerolog.Logger) *Gateway {
	client := httpclients.NewClient("generation").
		SetTimeout(cfg.GenerationTimeout)

	return &Gateway{
		client:      client,
		baseURL:     strings.TrimRight(cfg.GenerationBaseURL, "/"),
		model:       cfg.GenerationModel,
		maxTokens:   cfg.GenerationMaxTokens,
		temperature: cfg.GenerationTemperature,
		topP:        cfg.GenerationTopP,
		log:         log,
	}
}

// Initialize probes the backend once and marks the gateway ready. An
// unreachable backend does not fail startup, the gateway serves fallbacks
// until the backend comes up.
func (g *Gateway) Initialize(ctx context.Context) {
	status := g.probe(ctx)
	g.initialized.Store(true)
	if status != StatusHealthy {
		g.log.Warn().Str("backend", g.baseURL).Msg("generation backend unreachable at startup, serving fallbacks")
		return
	}
	g.log.Info().Str("backend", g.baseURL).Str("model", g.model).Msg("generation backend ready")
}

// Generate requests a completion and falls back locally on any failure. A
// non-empty grounding context is prefixed onto the prompt.
func (g *Gateway) Generate(ctx context.Context, req exchange.GenerationRequest) exchange.GenerationResult {
	start := time.Now()

	prompt := req.Prompt
	if req.Context != "" {
		prompt = req.Context + "\n" + prompt
	}

	body := openai.CompletionRequest{
		Model:       g.model,
		Prompt:      prompt,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		TopP:        g.topP,
	}

	var completion openai.CompletionResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&completion).
		Post(g.baseURL + completionsPath)

	switch {
	case err != nil:
		g.log.Warn().Err(err).Msg("completion request failed, serving fallback")
		return g.fallback(req.Query, start)
	case resp.IsError():
		g.log.Warn().Int("status", resp.StatusCode()).Msg("completion request rejected, serving fallback")
		return g.fallback(req.Query, start)
	case len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Text) == "":
		g.log.Warn().Msg("completion response empty, serving fallback")
		return g.fallback(req.Query, start)
	}

	return exchange.GenerationResult{
		Content:    strings.TrimSpace(completion.Choices[0].Text),
		Model:      g.model,
		TokensUsed: completion.Usage.TotalTokens,
		Duration:   time.Since(start),
	}
}

// Health reports the gateway state for the health endpoint.
func (g *Gateway) Health(ctx context.Context) string {
	if !g.initialized.Load() {
		return StatusNotInitialized
	}
	return g.probe(ctx)
}

// Shutdown releases the HTTP client.
func (g *Gateway) Shutdown() {
	g.client.Close()
}

func (g *Gateway) probe(ctx context.Context) string {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := g.client.R().SetContext(probeCtx).Get(g.baseURL + healthPath)
	if err != nil || resp.IsError() {
		return StatusUnhealthy
	}
	return StatusHealthy
}

// maxEchoedQuery caps how much of the query the fallback reply repeats. The
// reply must stay within message content bounds even when the query itself
// sits at the maximum.
const maxEchoedQuery = 200

func (g *Gateway) fallback(query string, start time.Time) exchange.GenerationResult {
	return exchange.GenerationResult{
		Content: fmt.Sprintf(
			"I'm temporarily unable to reach the language model, so I couldn't answer: %q. Please try again in a moment.",
			truncate(query, maxEchoedQuery)),
		Model:    "fallback",
		Fallback: true,
		Duration: time.Since(start),
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
