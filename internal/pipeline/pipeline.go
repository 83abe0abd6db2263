// Package pipeline turns raw listing candidates into scored canonical
// records through an ordered chain of middleware.
package pipeline

import (
	"log/slog"
	"sync"

	"github.com/IshaanNene/trendscout/internal/types"
)

// Item is a candidate moving through the pipeline. Stages fill in the
// normalized fields and the last one builds Record.
type Item struct {
	Raw             types.RawCandidate
	ExtraExclusions []string

	Brand    *string
	Title    string
	Category string

	Record *types.ProductRecord
}

// NewItem wraps a raw candidate with its source's extra exclusion keywords.
func NewItem(raw types.RawCandidate, extra []string) *Item {
	return &Item{Raw: raw, ExtraExclusions: extra, Title: raw.Name}
}

// BrandOrEmpty returns the normalized brand, or "" when none was found.
func (i *Item) BrandOrEmpty() string {
	if i.Brand == nil {
		return ""
	}
	return *i.Brand
}

// Middleware processes an item and returns the (possibly modified) item.
// Return nil to drop the item from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms an item. Return nil to drop the item.
	Process(item *Item) (*Item, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger

	mu      sync.Mutex
	dropped map[string]int
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger:  logger.With("component", "pipeline"),
		dropped: make(map[string]int),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the item through all middleware in order. A nil item with a
// nil error means a stage dropped it.
func (p *Pipeline) Process(item *Item) (*Item, error) {
	current := item

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			raw := current.Raw
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				Item:  &raw,
				Err:   err,
			}
		}
		if result == nil {
			p.mu.Lock()
			p.dropped[mw.Name()]++
			p.mu.Unlock()
			p.logger.Debug("item dropped", "stage", mw.Name(), "url", item.Raw.DetailURL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// Dropped returns how many items each stage dropped since creation.
func (p *Pipeline) Dropped() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.dropped))
	for k, v := range p.dropped {
		out[k] = v
	}
	return out
}

// Prepare builds every refresh stage except scoring. Raw exclusion runs
// before normalization and again on the cleaned title.
func Prepare(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(NewSanitizeMiddleware())
	p.Use(&RequiredFieldsMiddleware{})
	p.Use(NewDedupMiddleware())
	p.Use(&ExclusionMiddleware{Phase: PhaseRaw})
	p.Use(&NormalizeMiddleware{})
	p.Use(&ColorOnlyMiddleware{})
	p.Use(&ExclusionMiddleware{Phase: PhaseNormalized})
	p.Use(&CategoryMiddleware{})
	return p
}

// Scoring builds the final stage on its own, for callers that prime env
// with the whole run before any item is scored.
func Scoring(env *ScoreEnv, logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(NewScoreMiddleware(env))
	return p
}

// Standard is Prepare followed by scoring in one chain.
func Standard(env *ScoreEnv, logger *slog.Logger) *Pipeline {
	p := Prepare(logger)
	p.Use(NewScoreMiddleware(env))
	return p
}
