package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/trendscout/internal/sources"
	"github.com/IshaanNene/trendscout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeRenderer serves canned HTML snapshots per URL. Each HTML call after a
// navigation returns the next snapshot; the last one repeats.
type fakeRenderer struct {
	mu        sync.Mutex
	snapshots map[string][]string
	navErr    map[string]error
	htmlErr   map[string]error
	block     map[string]bool
	height    int
	opened    int
	closed    int
	scrolls   []int
}

func (r *fakeRenderer) Open(_ context.Context, _ sources.Descriptor) (Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
	return &fakePage{r: r}, nil
}

type fakePage struct {
	r     *fakeRenderer
	url   string
	reads int
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if p.r.block[url] {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := p.r.navErr[url]; err != nil {
		return err
	}
	p.url, p.reads = url, 0
	return nil
}

func (p *fakePage) HTML(context.Context) (string, error) {
	if err := p.r.htmlErr[p.url]; err != nil {
		return "", err
	}
	snaps := p.r.snapshots[p.url]
	if len(snaps) == 0 {
		return "<html></html>", nil
	}
	i := min(p.reads, len(snaps)-1)
	p.reads++
	return snaps[i], nil
}

func (p *fakePage) ScrollHeight(context.Context) (int, error) { return p.r.height, nil }

func (p *fakePage) ScrollTo(_ context.Context, y int) error {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	p.r.scrolls = append(p.r.scrolls, y)
	return nil
}

func (p *fakePage) Close() error {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	p.r.closed++
	return nil
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func card(href, name, img string) string {
	image := `<img src="data:image/gif;base64,AAAA">`
	if img != "" {
		image = fmt.Sprintf(`<img src="%s">`, img)
	}
	return fmt.Sprintf(`<li class="product"><a href="%s">%s</a><span class="name">%s</span><span class="price">19,99 €</span></li>`, href, image, name)
}

func listing(cards ...string) string {
	return "<html><body><ul>" + strings.Join(cards, "\n") + "</ul></body></html>"
}

func testSource(id string) sources.Descriptor {
	return sources.Descriptor{
		ID: id, RetailerBrand: "Zara", MarketZone: types.ZoneFR, Segment: types.SegmentWomen,
		BaseURL: "https://shop.example.com", Path: "/" + id,
		Selectors: listingSelectors, ResultCap: 50,
	}
}

func TestEngineRunScrollForImages(t *testing.T) {
	src := testSource("fr-women")
	src.ImageScrollSteps = 3

	r := &fakeRenderer{
		height: 2400,
		snapshots: map[string][]string{
			src.URL(): {
				listing(card("/p/1", "Robe midi", "https://cdn/1.jpg"), card("/p/2", "Jupe plissée", "")),
				listing(card("/p/1", "Robe midi", "https://cdn/1.jpg"), card("/p/2", "Jupe plissée", "https://cdn/2.jpg"),
					card("/p/3", "Chemise lin", "https://cdn/3.jpg")),
			},
		},
	}
	e := NewEngine(r, testLogger, WithSleep(noSleep))

	res := e.Run(context.Background(), src)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(res.Items))
	}
	for _, c := range res.Items {
		if c.ImageURL == "" {
			t.Errorf("item %s still lacks an image", c.DetailURL)
		}
		if c.SourceID != src.ID || c.Price != 19.99 {
			t.Errorf("unexpected item %+v", c)
		}
	}

	want := []State{StateInit, StateNavigate, StateInitialWait, StateExtract, StateScrollForImages, StateMerge, StateFilter, StateDone}
	if fmt.Sprint(res.Trail) != fmt.Sprint(want) {
		t.Errorf("trail = %v, want %v", res.Trail, want)
	}
	if r.opened != 1 || r.closed != 1 {
		t.Errorf("expected one session opened and closed, got %d/%d", r.opened, r.closed)
	}
}

func TestEngineIncrementalScroll(t *testing.T) {
	src := testSource("fr-men")
	src.PreScrollSteps = 3

	r := &fakeRenderer{
		height: 3000,
		snapshots: map[string][]string{
			src.URL(): {
				listing(card("/p/1", "Robe midi", "https://cdn/1.jpg")),
				listing(card("/p/2", "Jupe plissée", "https://cdn/2.jpg")),
				listing(card("/p/1", "Robe midi", "https://cdn/1.jpg"), card("/p/3", "Chemise lin", "https://cdn/3.jpg")),
			},
		},
	}
	res := NewEngine(r, testLogger, WithSleep(noSleep)).Run(context.Background(), src)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}

	if fmt.Sprint(r.scrolls) != "[1000 2000 3000]" {
		t.Errorf("scroll positions = %v", r.scrolls)
	}
	got := make([]string, 0, len(res.Items))
	for _, c := range res.Items {
		got = append(got, strings.TrimPrefix(c.DetailURL, "https://shop.example.com"))
	}
	if strings.Join(got, ",") != "/p/1,/p/2,/p/3" {
		t.Errorf("items in first-seen order = %v", got)
	}
	if res.Reached(StateScrollForImages) {
		t.Error("image pass should not run when no image is missing")
	}
}

func TestEngineNavigationFailure(t *testing.T) {
	src := testSource("broken")
	r := &fakeRenderer{navErr: map[string]error{src.URL(): errors.New("net::ERR_CONNECTION_RESET")}}

	res := NewEngine(r, testLogger, WithSleep(noSleep)).Run(context.Background(), src)
	if res.Err == nil {
		t.Fatal("expected an error")
	}
	if len(res.Items) != 0 {
		t.Errorf("expected no items, got %d", len(res.Items))
	}
	var xe *types.ExtractError
	if !errors.As(res.Err, &xe) || xe.State != StateNavigate.String() {
		t.Errorf("expected ExtractError in navigate state, got %v", res.Err)
	}
	if !errors.Is(res.Err, types.ErrNavigation) {
		t.Errorf("expected ErrNavigation, got %v", res.Err)
	}
	if res.Trail[len(res.Trail)-1] != StateDone {
		t.Errorf("trail should end in done: %v", res.Trail)
	}
	if r.closed != 1 {
		t.Error("page should be closed after a failed navigation")
	}
}

func TestEngineNavigationTimeout(t *testing.T) {
	src := testSource("slow")
	src.NavTimeout = 20 * time.Millisecond
	r := &fakeRenderer{block: map[string]bool{src.URL(): true}}

	res := NewEngine(r, testLogger, WithSleep(noSleep)).Run(context.Background(), src)
	if !errors.Is(res.Err, types.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", res.Err)
	}
}

func TestEngineCancelledContext(t *testing.T) {
	src := testSource("cancelled")
	r := &fakeRenderer{snapshots: map[string][]string{src.URL(): {listing(card("/p/1", "Robe", ""))}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewEngine(r, testLogger, WithSleep(noSleep)).Run(ctx, src)
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.Err)
	}
	if len(res.Items) != 0 {
		t.Error("a cancelled source must not return items")
	}
}

type fakeDetails struct {
	pages map[string]string
	calls int
}

func (f *fakeDetails) FetchDetail(_ context.Context, url string) (string, error) {
	f.calls++
	page, ok := f.pages[url]
	if !ok {
		return "", &types.FetchError{URL: url, StatusCode: 404, Err: types.ErrNotFound}
	}
	return page, nil
}

func TestDetailEnrich(t *testing.T) {
	src := testSource("hm-eu")
	src.Strategy = sources.ListingPlusDetailEnrich
	src.DetailLimit = 2
	src.DetailTimeout = time.Second

	noPrice := `<li class="product"><a href="/p/2"><img src="https://cdn/2.jpg"></a><span class="name">Jupe</span></li>`
	r := &fakeRenderer{snapshots: map[string][]string{src.URL(): {
		listing(card("/p/1", "Robe midi", "https://cdn/1.jpg"), noPrice, card("/p/3", "Chemise", "https://cdn/3.jpg")),
	}}}
	details := &fakeDetails{pages: map[string]string{
		"https://shop.example.com/p/1": detailHTML,
	}}

	x := NewExtractor(NewEngine(r, testLogger, WithSleep(noSleep)), details, testLogger)
	res := x.Extract(context.Background(), src)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("failed detail fetch must keep the listing record, got %d items", len(res.Items))
	}
	if details.calls != 2 {
		t.Errorf("detail limit not honoured: %d calls", details.calls)
	}

	enriched := res.Items[0]
	if enriched.Price != 19.99 {
		t.Errorf("listing price should be kept, got %v", enriched.Price)
	}
	if enriched.Technical.Composition != "Viscose, Coton" || enriched.Technical.ArticleNumber != "RB-2231" {
		t.Errorf("technical fields not enriched: %+v", enriched.Technical)
	}
	if res.Items[1].Price != 0 || !res.Items[1].Technical.IsZero() {
		t.Errorf("unenriched item should be listing-only: %+v", res.Items[1])
	}
}

func TestTrendSpotterMultiPage(t *testing.T) {
	src := testSource("spotter")
	src.Strategy = sources.TrendSpotterMultiPage
	src.Pages = []string{"/trending", "/down", "/new"}
	src.Selectors.Label = ".badge"

	rising := listing(card("/t/1", "Veste workwear", "https://cdn/t1.jpg"), card("/t/2", "Jupe plissée", "https://cdn/t2.jpg")) +
		`<script id="__NEXT_DATA__">{"props":{"pageProps":{"trends":[{"url":"/t/1","growth":34,"label":"Rising"}]}}}</script>`
	trending := listing(card("/t/2", "Jupe plissée", "https://cdn/t2.jpg"), card("/t/3", "Gilet maille", "https://cdn/t3.jpg")) +
		`<script>window.__TRENDS__ = [{"url":"/t/2","growth":"+12%","label":"Trending"}];</script>`
	newIn := listing(card("/t/4", "Robe nuisette", "https://cdn/t4.jpg"))

	r := &fakeRenderer{
		snapshots: map[string][]string{
			"https://shop.example.com/spotter":  {rising},
			"https://shop.example.com/trending": {trending},
			"https://shop.example.com/new":      {newIn},
		},
		navErr: map[string]error{"https://shop.example.com/down": errors.New("timeout")},
	}

	x := NewExtractor(NewEngine(r, testLogger, WithSleep(noSleep)), nil, testLogger)
	res := x.Extract(context.Background(), src)
	if res.Err != nil {
		t.Fatalf("one failing page must not fail the source: %v", res.Err)
	}
	if res.Pages != 3 {
		t.Errorf("expected 3 navigated pages, got %d", res.Pages)
	}
	if len(res.Items) != 4 {
		t.Fatalf("expected 4 merged items, got %d", len(res.Items))
	}
	if r.opened != 1 {
		t.Errorf("pages must share one session, opened %d", r.opened)
	}

	byURL := map[string]types.RawCandidate{}
	for _, c := range res.Items {
		byURL[strings.TrimPrefix(c.DetailURL, "https://shop.example.com")] = c
	}
	if g := byURL["/t/1"].TrendGrowthPercent; g == nil || *g != 34 || byURL["/t/1"].TrendLabel != "Rising" {
		t.Errorf("next data signal not applied: %+v", byURL["/t/1"])
	}
	if g := byURL["/t/2"].TrendGrowthPercent; g == nil || *g != 12 {
		t.Errorf("window state signal not applied: %+v", byURL["/t/2"])
	}
	if byURL["/t/4"].TrendGrowthPercent != nil {
		t.Error("item without a signal should keep nil growth")
	}
}

func TestTrendSpotterPageReadFailureKeepsOtherPages(t *testing.T) {
	src := testSource("spotter")
	src.Strategy = sources.TrendSpotterMultiPage
	src.Pages = []string{"/trending", "/new"}

	r := &fakeRenderer{
		snapshots: map[string][]string{
			"https://shop.example.com/spotter": {listing(card("/t/1", "Veste workwear", "https://cdn/t1.jpg"))},
			"https://shop.example.com/new":     {listing(card("/t/4", "Robe nuisette", "https://cdn/t4.jpg"))},
		},
		htmlErr: map[string]error{"https://shop.example.com/trending": errors.New("target closed")},
	}

	res := NewExtractor(NewEngine(r, testLogger, WithSleep(noSleep)), nil, testLogger).Extract(context.Background(), src)
	if res.Err != nil {
		t.Fatalf("one unreadable page must not fail the source: %v", res.Err)
	}
	if len(res.Items) != 2 {
		t.Errorf("expected the 2 cards of the readable pages, got %d", len(res.Items))
	}
}

func TestEnginePageReadFailureOnOnlyPage(t *testing.T) {
	src := testSource("broken")
	r := &fakeRenderer{htmlErr: map[string]error{src.URL(): errors.New("target closed")}}

	res := NewEngine(r, testLogger, WithSleep(noSleep)).Run(context.Background(), src)
	var xe *types.ExtractError
	if !errors.As(res.Err, &xe) || xe.State != StateExtract.String() {
		t.Fatalf("expected extract-state ExtractError, got %v", res.Err)
	}
	if len(res.Items) != 0 {
		t.Errorf("items = %d", len(res.Items))
	}
}

// blockingDetails never answers before its context ends.
type blockingDetails struct{}

func (blockingDetails) FetchDetail(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestDetailEnrichDeadlineKeepsListing(t *testing.T) {
	src := testSource("hm-eu")
	src.Strategy = sources.ListingPlusDetailEnrich
	src.DetailLimit = 3

	r := &fakeRenderer{snapshots: map[string][]string{src.URL(): {
		listing(card("/p/1", "Robe midi", "https://cdn/1.jpg"), card("/p/2", "Jupe", "https://cdn/2.jpg"), card("/p/3", "Chemise", "https://cdn/3.jpg")),
	}}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res := NewExtractor(NewEngine(r, testLogger, WithSleep(noSleep)), blockingDetails{}, testLogger).Extract(ctx, src)
	if res.Err != nil {
		t.Fatalf("running out of time while enriching must keep the listing: %v", res.Err)
	}
	if len(res.Items) != 3 {
		t.Errorf("items = %d, want 3 listing records", len(res.Items))
	}
}

func TestExtractorUnknownStrategy(t *testing.T) {
	src := testSource("odd")
	src.Strategy = "main_page_only"

	res := NewExtractor(NewEngine(&fakeRenderer{}, testLogger), nil, testLogger).Extract(context.Background(), src)
	var xe *types.ExtractError
	if !errors.As(res.Err, &xe) {
		t.Fatalf("expected ExtractError, got %v", res.Err)
	}
}

type stubStrategy struct{ items int }

func (s stubStrategy) Extract(_ context.Context, src sources.Descriptor) Result {
	return Result{SourceID: src.ID, Items: make([]types.RawCandidate, s.items)}
}

func TestExtractorRegisterAndDefault(t *testing.T) {
	x := NewExtractor(NewEngine(&fakeRenderer{}, testLogger), nil, testLogger)
	x.Register(sources.ListingOnly, stubStrategy{items: 2})

	src := testSource("plain")
	src.Strategy = ""
	res := x.Extract(context.Background(), src)
	if res.Err != nil || len(res.Items) != 2 {
		t.Errorf("empty strategy should dispatch to listing-only: %+v", res)
	}
}
