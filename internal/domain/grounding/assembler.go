package grounding

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Assembler gathers grounding context from the configured collaborators.
//
// Assemble never returns an error: each source that fails, times out or is
// simply not configured contributes nothing, and the caller proceeds with
// whatever was collected. The conversation must not die because a grounding
// backend is down.
type Assembler struct {
	retriever Retriever
	fetcher   SeriesFetcher
	timeout   time.Duration
	log       zerolog.Logger
}

func NewAssembler(retriever Retriever, fetcher SeriesFetcher, timeout time.Duration, log zerolog.Logger) *Assembler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Assembler{
		retriever: retriever,
		fetcher:   fetcher,
		timeout:   timeout,
		log:       log,
	}
}

// Assemble consults the opted-in sources concurrently under a shared
// deadline and merges whatever arrived in time.
func (a *Assembler) Assemble(ctx context.Context, query string, opts Options) Context {
	wantRetrieval := len(opts.DocumentRefs) > 0 && a.retriever != nil
	codes := opts.SeriesCodes
	if len(codes) > MaxSeriesCodes {
		codes = codes[:MaxSeriesCodes]
	}
	wantSeries := len(codes) > 0 && a.fetcher != nil

	if !wantRetrieval && !wantSeries {
		return Context{}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var result Context
	g, gctx := errgroup.WithContext(ctx)

	if wantRetrieval {
		g.Go(func() error {
			docs, err := a.retriever.Retrieve(gctx, query, opts.DocumentRefs)
			if err != nil {
				a.log.Warn().Err(err).Msg("document retrieval failed, continuing without documents")
				return nil
			}
			result.Documents = docs
			return nil
		})
	}

	if wantSeries {
		g.Go(func() error {
			series, err := a.fetcher.Fetch(gctx, codes)
			if err != nil {
				a.log.Warn().Err(err).Strs("codes", codes).Msg("series fetch failed, continuing without indicators")
				return nil
			}
			result.Series = series
			return nil
		})
	}

	// Goroutines swallow their own errors, so Wait only synchronizes.
	_ = g.Wait()

	return result
}
