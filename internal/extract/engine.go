package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/trendscout/internal/sources"
	"github.com/IshaanNene/trendscout/internal/types"
)

// Renderer opens isolated browser sessions.
type Renderer interface {
	Open(ctx context.Context, src sources.Descriptor) (Page, error)
}

// Page is one rendered browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	ScrollHeight(ctx context.Context) (int, error)
	ScrollTo(ctx context.Context, y int) error
	Close() error
}

// pageHook runs on every extraction snapshot of a page, after cards are read.
type pageHook func(html, pageURL string, cards []types.RawCandidate)

// Engine drives the extraction state machine for one source at a time.
type Engine struct {
	renderer Renderer
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSleep replaces the context-aware wait used for initial and settle
// delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) EngineOption {
	return func(e *Engine) { e.sleep = fn }
}

// NewEngine creates an engine rendering pages through r.
func NewEngine(r Renderer, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		renderer: r,
		logger:   logger.With("component", "extract_engine"),
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run extracts the source's listing page.
func (e *Engine) Run(ctx context.Context, src sources.Descriptor) Result {
	return e.run(ctx, src, []string{src.URL()}, nil)
}

// run walks urls in one browser session. A page that fails to navigate or
// extract is skipped and the cards of the other pages are kept. The run
// fails when no page could be navigated, when every navigated page failed
// to extract, or when ctx ends.
func (e *Engine) run(ctx context.Context, src sources.Descriptor, urls []string, hook pageHook) (res Result) {
	start := time.Now()
	res = Result{SourceID: src.ID}
	log := e.logger.With("source", src.ID)

	state := StateInit
	enter := func(s State) {
		state = s
		res.Trail = append(res.Trail, s)
	}
	fail := func(err error) Result {
		res.Items = nil
		res.Err = &types.ExtractError{SourceID: src.ID, State: state.String(), Err: err}
		res.Trail = append(res.Trail, StateDone)
		res.Duration = time.Since(start)
		log.Warn("extraction failed", "state", state.String(), "error", err)
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			res = fail(fmt.Errorf("renderer panic: %v", r))
		}
	}()

	enter(StateInit)
	page, err := e.renderer.Open(ctx, src)
	if err != nil {
		return fail(fmt.Errorf("open page: %w", err))
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Debug("close page", "error", err)
		}
	}()

	var pages [][]types.RawCandidate
	var navErr, pageErr error
	for _, pageURL := range urls {
		enter(StateNavigate)
		if err := e.navigate(ctx, page, src, pageURL); err != nil {
			if ctx.Err() != nil {
				return fail(ctx.Err())
			}
			navErr = err
			log.Warn("navigation failed", "url", pageURL, "error", err)
			continue
		}
		res.Pages++

		items, err := e.extractPage(ctx, page, src, pageURL, hook, enter)
		if err != nil {
			if ctx.Err() != nil {
				return fail(ctx.Err())
			}
			pageErr = err
			log.Warn("page extraction failed", "url", pageURL, "cards", len(items), "error", err)
			if len(items) == 0 {
				continue
			}
		}
		pages = append(pages, items)
	}
	if res.Pages == 0 {
		if navErr == nil {
			navErr = types.ErrNavigation
		}
		state = StateNavigate
		return fail(navErr)
	}
	if len(pages) == 0 {
		state = StateExtract
		return fail(pageErr)
	}

	enter(StateMerge)
	merged := Merge(pages...)

	enter(StateFilter)
	res.Items = Filter(merged, src)

	enter(StateDone)
	res.Duration = time.Since(start)
	log.Info("source extracted",
		"pages", res.Pages,
		"cards", len(merged),
		"items", len(res.Items),
		"duration", res.Duration,
	)
	return res
}

func (e *Engine) navigate(ctx context.Context, page Page, src sources.Descriptor, pageURL string) error {
	navCtx := ctx
	if src.NavTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, src.NavTimeout)
		defer cancel()
	}
	if err := page.Navigate(navCtx, pageURL); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %s: %v", types.ErrTimeout, pageURL, src.NavTimeout, err)
		}
		return fmt.Errorf("%w: %s: %v", types.ErrNavigation, pageURL, err)
	}
	return nil
}

// extractPage runs InitialWait, IncrementalScroll, Extract and
// ScrollForImages on a navigated page and returns its merged cards. On
// error the cards read before the failure are returned with it.
func (e *Engine) extractPage(ctx context.Context, page Page, src sources.Descriptor, pageURL string, hook pageHook, enter func(State)) ([]types.RawCandidate, error) {
	enter(StateInitialWait)
	if err := e.sleep(ctx, src.InitialWait); err != nil {
		return nil, err
	}

	var passes [][]types.RawCandidate
	snapshot := func() error {
		html, err := page.HTML(ctx)
		if err != nil {
			return fmt.Errorf("read page html: %w", err)
		}
		cards, err := ExtractCards(html, pageURL, src.Selectors)
		if err != nil {
			return err
		}
		if hook != nil {
			hook(html, pageURL, cards)
		}
		passes = append(passes, cards)
		return nil
	}

	if src.PreScrollSteps > 0 {
		enter(StateIncrementalScroll)
		if err := e.scrollThrough(ctx, page, src, src.PreScrollSteps, snapshot); err != nil {
			return Merge(passes...), err
		}
	}

	enter(StateExtract)
	if err := snapshot(); err != nil {
		return Merge(passes...), err
	}
	merged := Merge(passes...)
	if len(merged) == 0 {
		e.logger.Debug("no cards matched", "source", src.ID, "url", pageURL, "container", src.Selectors.Container)
	}

	for i := 0; i < src.ImageScrollSteps && missingImages(merged) > 0; i++ {
		enter(StateScrollForImages)
		if err := page.ScrollTo(ctx, 0); err != nil {
			return merged, fmt.Errorf("scroll to top: %w", err)
		}
		if err := e.scrollThrough(ctx, page, src, max(src.PreScrollSteps, 1), nil); err != nil {
			return merged, err
		}
		if err := snapshot(); err != nil {
			return merged, err
		}
		merged = Merge(passes...)
	}

	return merged, nil
}

// scrollThrough scrolls the document height in steps equal increments with
// the settle delay after each, calling after (when set) at every step.
func (e *Engine) scrollThrough(ctx context.Context, page Page, src sources.Descriptor, steps int, after func() error) error {
	height, err := page.ScrollHeight(ctx)
	if err != nil {
		return fmt.Errorf("read scroll height: %w", err)
	}
	step := height / steps
	for i := 1; i <= steps; i++ {
		y := step * i
		if i == steps {
			y = height
		}
		if err := page.ScrollTo(ctx, y); err != nil {
			return fmt.Errorf("scroll to %d: %w", y, err)
		}
		if err := e.sleep(ctx, src.SettleDelay); err != nil {
			return err
		}
		if after != nil {
			if err := after(); err != nil {
				return err
			}
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
