package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/trendscout/internal/sources"
	"github.com/IshaanNene/trendscout/internal/types"
)

// Strategy turns one source into raw candidates.
type Strategy interface {
	Extract(ctx context.Context, src sources.Descriptor) Result
}

// DetailFetcher loads a product detail page and returns its HTML.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, url string) (string, error)
}

// ListingOnly reads everything from the listing page.
type ListingOnly struct {
	Engine *Engine
}

func (s ListingOnly) Extract(ctx context.Context, src sources.Descriptor) Result {
	return s.Engine.Run(ctx, src)
}

// DetailEnrich runs the listing extraction, then visits up to
// src.DetailLimit detail pages to fill price and technical fields. A failed
// detail fetch keeps the listing-only candidate, and so does running out of
// time before every page was visited.
type DetailEnrich struct {
	Engine  *Engine
	Details DetailFetcher
	Logger  *slog.Logger
}

func (s DetailEnrich) Extract(ctx context.Context, src sources.Descriptor) Result {
	res := s.Engine.Run(ctx, src)
	if res.Err != nil || s.Details == nil {
		return res
	}

	limit := src.DetailLimit
	if limit <= 0 || limit > len(res.Items) {
		limit = len(res.Items)
	}

	enriched, failed := 0, 0
	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			break
		}
		c := &res.Items[i]
		if c.DetailURL == "" {
			continue
		}
		if err := s.enrich(ctx, src, c); err != nil {
			failed++
			s.Logger.Debug("detail enrich failed", "source", src.ID, "url", c.DetailURL, "error", err)
			continue
		}
		enriched++
	}

	if err := ctx.Err(); err != nil {
		s.Logger.Warn("detail enrich cut short, keeping listing data",
			"source", src.ID, "enriched", enriched, "failed", failed, "error", err)
		return res
	}

	s.Logger.Info("detail enrich complete", "source", src.ID, "enriched", enriched, "failed", failed)
	return res
}

func (s DetailEnrich) enrich(ctx context.Context, src sources.Descriptor, c *types.RawCandidate) error {
	dctx := ctx
	if src.DetailTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, src.DetailTimeout)
		defer cancel()
	}

	page, err := s.Details.FetchDetail(dctx, c.DetailURL)
	if err != nil {
		return err
	}
	d, err := ParseDetail(page)
	if err != nil {
		return err
	}
	d.Apply(c)
	return nil
}

// TrendSpotter walks the listing page plus src.Pages in one session,
// reading embedded trend state from each page.
type TrendSpotter struct {
	Engine *Engine
}

func (s TrendSpotter) Extract(ctx context.Context, src sources.Descriptor) Result {
	var mu sync.Mutex
	signals := make(map[string]TrendSignal)
	hook := func(html, pageURL string, _ []types.RawCandidate) {
		mu.Lock()
		defer mu.Unlock()
		for k, v := range ParseTrendSignals(html, pageURL) {
			if _, ok := signals[k]; !ok {
				signals[k] = v
			}
		}
	}

	res := s.Engine.run(ctx, src, src.PageURLs(), hook)
	if res.Err == nil {
		ApplyTrendSignals(res.Items, signals)
	}
	return res
}

// Extractor dispatches each source to the strategy its descriptor names.
type Extractor struct {
	strategies map[sources.Strategy]Strategy
	logger     *slog.Logger
}

// NewExtractor wires the three strategies over one engine. details may be
// nil, in which case enrich sources behave like listing-only ones.
func NewExtractor(engine *Engine, details DetailFetcher, logger *slog.Logger) *Extractor {
	logger = logger.With("component", "extractor")
	return &Extractor{
		strategies: map[sources.Strategy]Strategy{
			sources.ListingOnly:             ListingOnly{Engine: engine},
			sources.ListingPlusDetailEnrich: DetailEnrich{Engine: engine, Details: details, Logger: logger},
			sources.TrendSpotterMultiPage:   TrendSpotter{Engine: engine},
		},
		logger: logger,
	}
}

// Register replaces the strategy used for name.
func (x *Extractor) Register(name sources.Strategy, s Strategy) {
	x.strategies[name] = s
}

// Extract runs src with its strategy.
func (x *Extractor) Extract(ctx context.Context, src sources.Descriptor) Result {
	name := src.Strategy
	if name == "" {
		name = sources.ListingOnly
	}
	s, ok := x.strategies[name]
	if !ok {
		return Result{
			SourceID: src.ID,
			Trail:    []State{StateDone},
			Err:      &types.ExtractError{SourceID: src.ID, State: StateInit.String(), Err: fmt.Errorf("no strategy for %q", src.Strategy)},
		}
	}

	start := time.Now()
	res := s.Extract(ctx, src)
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}
	x.logger.Debug("strategy finished",
		"source", src.ID,
		"strategy", src.Strategy.String(),
		"items", len(res.Items),
		"error", res.Err,
	)
	return res
}
