// Package exchange orchestrates a full message exchange: persist the user's
// message, assemble context, generate a reply and persist it.
package exchange

import (
	"context"
	"time"

	"velvet-server/internal/domain/chat"
	"velvet-server/internal/domain/grounding"
)

// GenerationRequest carries everything the generation backend needs for one
// reply. The generator prefixes Context onto Prompt when it is non-empty.
type GenerationRequest struct {
	// Prompt is the rendered conversation transcript ending with an open
	// assistant turn.
	Prompt string

	// Context is the assembled grounding block, empty when grounding was
	// not requested or degraded to nothing.
	Context string

	// Query is the raw user message, used to build the fallback reply.
	Query string
}

// GenerationResult is the backend's reply. Fallback marks replies produced
// locally because the backend was unavailable or returned garbage.
type GenerationResult struct {
	Content    string
	Model      string
	Fallback   bool
	TokensUsed int
	Duration   time.Duration
}

// Generator produces a reply for a prompt. Implementations never fail: when
// the backend is unreachable they return a deterministic fallback result, so
// there is no error to propagate.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) GenerationResult
}

// Input is a single send-message request after authentication.
type Input struct {
	UserID       uint
	ChatPublicID string
	Content      string
	Grounding    grounding.Options
}

// Result is the outcome of a completed exchange. Both messages are persisted
// when the exchange succeeds. ContextUsed reports whether a non-empty
// grounding block reached the generator; fallback replies are delivered as
// ordinary assistant messages, never as errors.
type Result struct {
	UserMessage      *chat.Message
	AssistantMessage *chat.Message
	Model            string
	Fallback         bool
	ContextUsed      bool
}
