package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"velvet-server/internal/domain/chat"
	"velvet-server/internal/domain/grounding"
	"velvet-server/internal/infrastructure/metrics"
	"velvet-server/internal/utils/platformerrors"
)

// Orchestrator runs the send-message pipeline. Exchanges within one chat are
// serialized; the user's message is made durable before anything slow or
// fallible runs.
type Orchestrator struct {
	chats     *chat.Service
	assembler *grounding.Assembler
	generator Generator
	window    int
	locks     *chatLocks
	log       zerolog.Logger
}

func NewOrchestrator(chats *chat.Service, assembler *grounding.Assembler, generator Generator, historyWindow int, log zerolog.Logger) *Orchestrator {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	return &Orchestrator{
		chats:     chats,
		assembler: assembler,
		generator: generator,
		window:    historyWindow,
		locks:     newChatLocks(),
		log:       log,
	}
}

// SendMessage runs one exchange end to end.
//
// The user's message is persisted before generation starts and the remainder
// of the pipeline runs on a context detached from the client connection, so a
// disconnect mid-generation cannot lose the already accepted message or the
// reply derived from it.
func (o *Orchestrator) SendMessage(ctx context.Context, in Input) (*Result, error) {
	c, err := o.chats.ResolveOwned(ctx, in.UserID, in.ChatPublicID)
	if err != nil {
		return nil, err
	}

	release := o.locks.acquire(c.ID)
	defer release()

	userMsg, err := o.chats.AppendMessage(ctx, c.ID, chat.RoleUser, in.Content, nil)
	if err != nil {
		metrics.ExchangesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	// From here on the exchange must finish even if the caller hangs up.
	ctx = context.WithoutCancel(ctx)

	history, err := o.chats.RecentHistory(ctx, c.ID, o.window)
	if err != nil {
		o.log.Warn().Err(err).Str("chat_id", in.ChatPublicID).Msg("history load failed, generating without history")
		history = []*chat.Message{{Role: chat.RoleUser, Content: in.Content}}
	}

	groundingRequested := len(in.Grounding.DocumentRefs) > 0 || len(in.Grounding.SeriesCodes) > 0
	gctx := o.assembler.Assemble(ctx, in.Content, in.Grounding)
	if groundingRequested && gctx.Empty() {
		metrics.GroundingEmptyTotal.Inc()
	}
	contextBlock := gctx.Render()

	genStart := time.Now()
	gen := o.generator.Generate(ctx, GenerationRequest{
		Prompt:  buildTranscript(history),
		Context: contextBlock,
		Query:   in.Content,
	})
	metrics.GenerationDuration.Observe(time.Since(genStart).Seconds())
	if gen.Fallback {
		metrics.GenerationFallbacksTotal.Inc()
	}

	meta := map[string]any{
		"model":        gen.Model,
		"fallback":     gen.Fallback,
		"context_used": contextBlock != "",
	}
	if gen.TokensUsed > 0 {
		meta["tokens_used"] = gen.TokensUsed
	}

	assistantMsg, err := o.persistAssistant(ctx, c.ID, gen.Content, meta)
	if err != nil {
		metrics.ReconciliationsNeededTotal.Inc()
		metrics.ExchangesTotal.WithLabelValues("error").Inc()
		o.log.Error().Err(err).
			Str("chat_id", in.ChatPublicID).
			Str("user_message_id", userMsg.PublicID).
			Bool("reconciliation_needed", true).
			Msg("assistant reply generated but not persisted")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to store assistant reply", err, "")
	}

	if gen.Fallback {
		metrics.ExchangesTotal.WithLabelValues("fallback").Inc()
	} else {
		metrics.ExchangesTotal.WithLabelValues("ok").Inc()
	}

	return &Result{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Model:            gen.Model,
		Fallback:         gen.Fallback,
		ContextUsed:      contextBlock != "",
	}, nil
}

// persistAssistant retries the append once. The reply already exists at this
// point, losing it means the user message sits unanswered in storage.
func (o *Orchestrator) persistAssistant(ctx context.Context, chatID uint, content string, meta map[string]any) (*chat.Message, error) {
	msg, err := o.chats.AppendMessage(ctx, chatID, chat.RoleAssistant, content, meta)
	if err == nil {
		return msg, nil
	}
	if platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		return nil, err
	}

	time.Sleep(100 * time.Millisecond)
	return o.chats.AppendMessage(ctx, chatID, chat.RoleAssistant, content, meta)
}

// buildTranscript renders the history as role-prefixed lines. The history
// already ends with the just persisted user message, so the trailing
// "assistant:" line hands the turn to the model.
func buildTranscript(history []*chat.Message) string {
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	b.WriteString("assistant:")
	return b.String()
}
