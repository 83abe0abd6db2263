package pipeline

import (
	"html"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/trendscout/internal/exclusion"
	"github.com/IshaanNene/trendscout/internal/normalize"
	"github.com/IshaanNene/trendscout/internal/scoring"
	"github.com/IshaanNene/trendscout/internal/types"
)

// --- Cleanup ---

// SanitizeMiddleware strips HTML tags and entities that leak into names and
// labels read from embedded JSON.
type SanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewSanitizeMiddleware() *SanitizeMiddleware {
	return &SanitizeMiddleware{stripRe: regexp.MustCompile(`<[^>]*>`)}
}

func (m *SanitizeMiddleware) Name() string { return "sanitize" }

func (m *SanitizeMiddleware) Process(item *Item) (*Item, error) {
	clean := func(s string) string {
		s = m.stripRe.ReplaceAllString(s, " ")
		s = html.UnescapeString(s)
		return strings.Join(strings.Fields(s), " ")
	}
	item.Raw.Name = clean(item.Raw.Name)
	item.Raw.TrendLabel = clean(item.Raw.TrendLabel)
	item.Title = item.Raw.Name
	return item, nil
}

// RequiredFieldsMiddleware drops candidates without a detail URL or name.
type RequiredFieldsMiddleware struct{}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(item *Item) (*Item, error) {
	if item.Raw.DetailURL == "" || strings.TrimSpace(item.Raw.Name) == "" {
		return nil, nil
	}
	return item, nil
}

// --- Classification ---

// Phase selects which title an ExclusionMiddleware inspects.
type Phase int

const (
	PhaseRaw Phase = iota
	PhaseNormalized
)

// ExclusionMiddleware drops out-of-scope products. It runs once on the raw
// name and again on the cleaned title, which may have changed shape.
type ExclusionMiddleware struct {
	Phase Phase
}

func (m *ExclusionMiddleware) Name() string {
	if m.Phase == PhaseNormalized {
		return "exclusion_normalized"
	}
	return "exclusion_raw"
}

func (m *ExclusionMiddleware) Process(item *Item) (*Item, error) {
	text := item.Raw.Name
	if m.Phase == PhaseNormalized {
		text = item.Title
	}
	if exclusion.IsExcluded(text, item.ExtraExclusions) {
		return nil, nil
	}
	return item, nil
}

// NormalizeMiddleware splits the raw name into brand and clean title.
type NormalizeMiddleware struct{}

func (m *NormalizeMiddleware) Name() string { return "normalize" }

func (m *NormalizeMiddleware) Process(item *Item) (*Item, error) {
	item.Brand = normalize.ExtractBrand(item.Raw.Name, item.Raw.RetailerBrand)
	item.Title = normalize.CleanTitle(item.Raw.Name, item.Brand)
	return item, nil
}

// ColorOnlyMiddleware drops swatch labels scraped in place of a name.
type ColorOnlyMiddleware struct{}

func (m *ColorOnlyMiddleware) Name() string { return "color_only" }

func (m *ColorOnlyMiddleware) Process(item *Item) (*Item, error) {
	if exclusion.IsColorOnlyTitle(item.Raw.Name) || exclusion.IsColorOnlyTitle(item.Title) {
		return nil, nil
	}
	return item, nil
}

// CategoryMiddleware infers the garment category from the clean title.
type CategoryMiddleware struct{}

func (m *CategoryMiddleware) Name() string { return "category" }

func (m *CategoryMiddleware) Process(item *Item) (*Item, error) {
	item.Category = normalize.InferCategory(item.Title)
	return item, nil
}

// DedupMiddleware drops repeats of a natural key within one run, keeping the
// first occurrence.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[string]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(item *Item) (*Item, error) {
	key := recordKey(item.Raw).String()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return item, nil
}

// --- Scoring ---

// ScoreEnv carries the run-wide context scoring needs: records from the
// previous run (for createdAt and days tracked), the zones each product has
// been seen in, and per-category recurrence counts.
type ScoreEnv struct {
	now   func() time.Time
	newID func() string

	mu         sync.Mutex
	prior      map[string]*types.ProductRecord
	zones      map[string]map[types.MarketZone]struct{}
	recurrence map[string]int
}

// NewScoreEnv seeds the environment with records that existed before the run.
func NewScoreEnv(prior []*types.ProductRecord, now func() time.Time) *ScoreEnv {
	if now == nil {
		now = time.Now
	}
	env := &ScoreEnv{
		now:        now,
		newID:      uuid.NewString,
		prior:      make(map[string]*types.ProductRecord, len(prior)),
		zones:      make(map[string]map[types.MarketZone]struct{}),
		recurrence: make(map[string]int),
	}
	for _, r := range prior {
		env.prior[r.Key().String()] = r
		env.addZone(identity(r.BrandOrEmpty(), r.Name), r.MarketZone)
	}
	return env
}

func (e *ScoreEnv) addZone(id string, zone types.MarketZone) {
	set, ok := e.zones[id]
	if !ok {
		set = make(map[types.MarketZone]struct{})
		e.zones[id] = set
	}
	set[zone] = struct{}{}
}

// Prime counts items per category and records the zones each product
// appears in. Scores computed afterwards never depend on the order items
// are scored in.
func (e *ScoreEnv) Prime(items []*Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, item := range items {
		e.addZone(identity(item.BrandOrEmpty(), item.Title), item.Raw.MarketZone)
		e.recurrence[item.Category]++
	}
}

// observe returns the previous record for item's key, whether the product
// spans several zones, and how many primed items share its category
// (itself included). Unprimed items count as a category of one.
func (e *ScoreEnv) observe(item *Item) (prev *types.ProductRecord, multiZone bool, recurrence int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev = e.prior[recordKey(item.Raw).String()]
	set := e.zones[identity(item.BrandOrEmpty(), item.Title)]
	zones := len(set)
	if _, seen := set[item.Raw.MarketZone]; !seen {
		zones++
	}
	recurrence = e.recurrence[item.Category]
	if recurrence < 1 {
		recurrence = 1
	}
	return prev, zones > 1, recurrence
}

// ScoreMiddleware computes growth, trend score and saturability and builds
// the canonical record.
type ScoreMiddleware struct {
	env *ScoreEnv
}

func NewScoreMiddleware(env *ScoreEnv) *ScoreMiddleware {
	if env == nil {
		env = NewScoreEnv(nil, nil)
	}
	return &ScoreMiddleware{env: env}
}

func (m *ScoreMiddleware) Name() string { return "score" }

func (m *ScoreMiddleware) Process(item *Item) (*Item, error) {
	raw := item.Raw
	now := m.env.now().UTC()
	prev, multiZone, recurrence := m.env.observe(item)

	rec := &types.ProductRecord{
		ID:           m.env.newID(),
		Name:         item.Title,
		Category:     item.Category,
		ProductBrand: item.Brand,
		AveragePrice: raw.Price,
		ImageURL:     raw.ImageURL,
		MarketZone:   raw.MarketZone,
		Segment:      raw.Segment,
		SourceBrand:  raw.RetailerBrand,
		SourceURL:    raw.DetailURL,
		TrendLabel:   types.String(raw.TrendLabel),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	daysTracked := 0
	if prev != nil {
		rec.ID = prev.ID
		rec.CreatedAt = prev.CreatedAt
		if d := now.Sub(prev.CreatedAt); d > 0 {
			daysTracked = int(d.Hours() / 24)
		}
	}

	growth := raw.TrendGrowthPercent
	if growth == nil {
		est := scoring.EstimateInternalTrendPercent(scoring.EstimateInput{
			VisualScore:          raw.VisualScore,
			MultiZone:            multiZone,
			DaysTracked:          daysTracked,
			RecurrenceInCategory: recurrence,
		})
		growth = &est
		rec.GrowthEstimated = true
	} else {
		g := *growth
		growth = &g
	}
	rec.TrendGrowthPercent = growth

	// Saturability only trusts retailer-reported growth.
	rec.Saturability = scoring.ComputeSaturability(raw.TrendGrowthPercent, daysTracked)
	rec.TrendScore = scoring.ComputeTrendScore(growth, raw.TrendLabel, raw.VisualScore)

	if !raw.Technical.IsZero() {
		tech := raw.Technical
		tech.Sizes = append([]string(nil), raw.Technical.Sizes...)
		rec.Technical = &tech
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	item.Record = rec
	return item, nil
}

func recordKey(raw types.RawCandidate) types.RecordKey {
	return types.RecordKey{SourceURL: raw.DetailURL, SourceBrand: raw.RetailerBrand, MarketZone: raw.MarketZone}
}

// identity matches the same product across zones by brand and clean title.
func identity(brand, title string) string {
	return exclusion.Fold(brand + " " + title)
}
