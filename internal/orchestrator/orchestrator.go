// Package orchestrator runs a refresh: it clears the records of the covered
// retailers, extracts every source, scores candidates through the pipeline,
// persists them and rolls the result into the weekly snapshot index.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/trendscout/internal/config"
	"github.com/IshaanNene/trendscout/internal/extract"
	"github.com/IshaanNene/trendscout/internal/observability"
	"github.com/IshaanNene/trendscout/internal/pipeline"
	"github.com/IshaanNene/trendscout/internal/snapshot"
	"github.com/IshaanNene/trendscout/internal/sources"
	"github.com/IshaanNene/trendscout/internal/storage"
	"github.com/IshaanNene/trendscout/internal/types"
)

// LockName is the run lock shared by every refresh.
const LockName = "refresh"

// State represents the orchestrator's lifecycle state.
type State int32

const (
	StateIdle       State = 0
	StateExtracting State = 1
	StatePersisting State = 2
	StateSnapshot   State = 3
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StatePersisting:
		return "persisting"
	case StateSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// Extractor turns one source into raw candidates.
type Extractor interface {
	Extract(ctx context.Context, src sources.Descriptor) extract.Result
}

// Report summarizes one refresh.
type Report struct {
	RunID            string                 `json:"run_id"`
	DryRun           bool                   `json:"dry_run,omitempty"`
	DeletedCount     int64                  `json:"deleted_count"`
	SavedCount       int64                  `json:"saved_count"`
	TotalItemsSeen   int                    `json:"total_items_seen"`
	SourcesProcessed int                    `json:"sources_processed"`
	Errors           []string               `json:"errors"`
	Dropped          map[string]int         `json:"dropped,omitempty"`
	Snapshots        []types.MarketSnapshot `json:"snapshots,omitempty"`
	Records          []*types.ProductRecord `json:"-"`
	StartedAt        time.Time              `json:"started_at"`
	Duration         time.Duration          `json:"duration"`
}

// Status is "ok" without errors, "partial" otherwise.
func (r *Report) Status() string {
	if len(r.Errors) == 0 {
		return "ok"
	}
	return "partial"
}

func (r *Report) softError(sourceID string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %s", sourceID, err))
}

// Orchestrator coordinates refresh runs.
type Orchestrator struct {
	registry  *sources.Registry
	extractor Extractor
	products  storage.ProductStore
	snapshots *snapshot.Index
	locker    storage.Locker
	metrics   *observability.Metrics
	cfg       config.RefreshConfig
	logger    *slog.Logger

	now    func() time.Time
	dryRun bool
	state  atomic.Int32
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSnapshots enables the snapshot phase.
func WithSnapshots(ix *snapshot.Index) Option {
	return func(o *Orchestrator) { o.snapshots = ix }
}

// WithLocker replaces the in-process run lock.
func WithLocker(l storage.Locker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

// WithMetrics records run metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock replaces the wall clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithDryRun extracts and scores without touching any store.
func WithDryRun(dry bool) Option {
	return func(o *Orchestrator) { o.dryRun = dry }
}

// New creates an orchestrator over the given registry, extractor and store.
func New(cfg config.RefreshConfig, registry *sources.Registry, x Extractor, products storage.ProductStore, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:  registry,
		extractor: x,
		products:  products,
		locker:    storage.NewLocalLocker(),
		cfg:       cfg,
		logger:    logger.With("component", "orchestrator"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Refresh runs the sources named by ids, or every active source when ids is
// empty. Per-source failures land in Report.Errors and do not stop the run.
// A store failure aborts it and is returned along with the partial report.
func (o *Orchestrator) Refresh(ctx context.Context, ids []string) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		DryRun:    o.dryRun,
		Errors:    []string{},
		StartedAt: o.now().UTC(),
	}
	logger := o.logger.With("run_id", report.RunID)

	release, err := o.locker.Acquire(ctx, LockName)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(); err != nil {
			logger.Warn("release run lock", "error", err)
		}
	}()

	descs, err := o.registry.Active(ids)
	if err != nil {
		return nil, err
	}

	// The run timeout bounds extraction. Persistence and the snapshot phase
	// run on the caller's context so extracted records are not lost to it.
	extractCtx := ctx
	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		o.state.Store(int32(StateIdle))
	}()

	logger.Info("refresh starting", "sources", len(descs), "dry_run", o.dryRun)

	err = o.run(ctx, extractCtx, logger, descs, report)
	status := report.Status()
	if err != nil {
		status = "failed"
	}
	o.metrics.ObserveRun(status)
	o.metrics.ObserveRecords(report.SavedCount, report.DeletedCount)

	logger.Info("refresh finished",
		"status", status,
		"deleted", report.DeletedCount,
		"saved", report.SavedCount,
		"seen", report.TotalItemsSeen,
		"sources", report.SourcesProcessed,
		"errors", len(report.Errors),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return report, err
}

func (o *Orchestrator) run(ctx, extractCtx context.Context, logger *slog.Logger, descs []sources.Descriptor, report *Report) error {
	filter := storage.Filter{SourceBrands: sources.Retailers(descs)}

	// Loaded before the delete so identity and tracking age carry over.
	prior, err := o.products.FindMany(ctx, filter, storage.OrderBy{}, 0)
	if err != nil {
		return err
	}
	if !o.dryRun && len(descs) > 0 {
		deleted, err := o.products.DeleteMany(ctx, filter)
		if err != nil {
			return err
		}
		report.DeletedCount = deleted
		logger.Info("cleared previous records", "retailers", filter.SourceBrands, "deleted", deleted)
	}

	prep := pipeline.Prepare(logger)
	env := pipeline.NewScoreEnv(prior, o.now)
	scorer := pipeline.Scoring(env, logger)
	defer func() { report.Dropped = mergeDropped(prep.Dropped(), scorer.Dropped()) }()

	o.state.Store(int32(StateExtracting))
	batches := o.extractAll(extractCtx, logger, descs, prep, report)

	// Recurrence and zone presence are counted over the whole run before
	// any candidate is scored.
	var all []*pipeline.Item
	for _, b := range batches {
		all = append(all, b.items...)
	}
	env.Prime(all)

	o.state.Store(int32(StatePersisting))
	for _, b := range batches {
		if err := o.persist(ctx, logger, b, scorer, report); err != nil {
			return err
		}
	}

	if o.snapshots != nil && !o.dryRun {
		o.state.Store(int32(StateSnapshot))
		o.updateSnapshots(ctx, report)
	}
	return nil
}

type sourceResult struct {
	index int
	desc  sources.Descriptor
	res   extract.Result
}

// batch is one source's candidates after every stage but scoring.
type batch struct {
	desc  sources.Descriptor
	items []*pipeline.Item
}

// extractAll runs sources on a bounded worker pool and prepares their
// candidates in source order on the calling goroutine.
func (o *Orchestrator) extractAll(ctx context.Context, logger *slog.Logger, descs []sources.Descriptor, prep *pipeline.Pipeline, report *Report) []batch {
	workers := o.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(descs) {
		workers = len(descs)
	}

	jobs := make(chan int)
	results := make(chan sourceResult, len(descs))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results <- sourceResult{index: i, desc: descs[i], res: o.extractOne(ctx, descs[i])}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := range descs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	done := make([]*sourceResult, len(descs))
	for r := range results {
		done[r.index] = &r
	}

	batches := make([]batch, 0, len(descs))
	for i, r := range done {
		if r == nil {
			// Never handed to a worker because the run was cancelled.
			report.SourcesProcessed++
			report.softError(descs[i].ID, fmt.Errorf("not started: %w", ctx.Err()))
			continue
		}
		if b, ok := o.prepare(logger, *r, prep, report); ok {
			batches = append(batches, b)
		}
	}
	return batches
}

func (o *Orchestrator) extractOne(ctx context.Context, src sources.Descriptor) extract.Result {
	if err := ctx.Err(); err != nil {
		return extract.Result{SourceID: src.ID, Err: err}
	}
	if o.cfg.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.SourceTimeout)
		defer cancel()
	}
	return o.extractor.Extract(ctx, src)
}

// prepare runs one source's candidates through every stage but scoring.
// Failures are soft errors on the report.
func (o *Orchestrator) prepare(logger *slog.Logger, r sourceResult, prep *pipeline.Pipeline, report *Report) (batch, bool) {
	src, res := r.desc, r.res
	report.SourcesProcessed++
	report.TotalItemsSeen += len(res.Items)
	o.metrics.ObserveSource(src.ID, len(res.Items), res.Duration, res.Err != nil)

	if res.Err != nil {
		logger.Warn("source failed", "source", src.ID, "error", res.Err)
		report.softError(src.ID, res.Err)
		return batch{}, false
	}

	b := batch{desc: src}
	for _, raw := range res.Items {
		item, err := prep.Process(pipeline.NewItem(raw, src.ExtraExclusions))
		if err != nil {
			logger.Debug("candidate rejected", "source", src.ID, "error", err)
			report.softError(src.ID, err)
			continue
		}
		if item != nil {
			b.items = append(b.items, item)
		}
	}

	logger.Info("source extracted",
		"source", src.ID,
		"items", len(res.Items),
		"kept", len(b.items),
		"pages", res.Pages,
		"elapsed", res.Duration.Round(time.Millisecond),
	)
	return b, true
}

// persist scores and upserts one source's prepared candidates. Only store
// failures are returned; everything else is a soft error on the report.
func (o *Orchestrator) persist(ctx context.Context, logger *slog.Logger, b batch, scorer *pipeline.Pipeline, report *Report) error {
	src := b.desc
	saved := 0
	for _, it := range b.items {
		item, err := scorer.Process(it)
		if err != nil {
			logger.Debug("candidate rejected", "source", src.ID, "error", err)
			report.softError(src.ID, err)
			continue
		}
		if item == nil {
			continue
		}
		if !o.dryRun {
			if _, err := o.products.Upsert(ctx, item.Record); err != nil {
				if types.IsStorageError(err) {
					return err
				}
				report.softError(src.ID, err)
				continue
			}
		}
		report.SavedCount++
		report.Records = append(report.Records, item.Record)
		saved++
	}
	logger.Info("source saved", "source", src.ID, "saved", saved)
	return nil
}

// updateSnapshots rolls up the whole persisted collection, so a refresh of
// a subset of retailers still writes rows that count every retailer.
func (o *Orchestrator) updateSnapshots(ctx context.Context, report *Report) {
	persisted, err := o.products.FindMany(ctx, storage.Filter{}, storage.OrderBy{}, 0)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("snapshot: %s", err))
		return
	}
	rows, errs := o.snapshots.UpdateAll(ctx, snapshot.Rollup(persisted))
	report.Snapshots = rows
	for _, err := range errs {
		report.Errors = append(report.Errors, err.Error())
	}
	for _, row := range rows {
		o.metrics.ObserveSignal(string(row.Signal))
	}
	if ctx.Err() != nil {
		o.logger.Warn("snapshot phase cut short", "written", len(rows))
	}
}

func mergeDropped(maps ...map[string]int) map[string]int {
	out := make(map[string]int)
	for _, m := range maps {
		for k, v := range m {
			out[k] += v
		}
	}
	return out
}
