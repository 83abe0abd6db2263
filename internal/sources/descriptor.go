// Package sources declares the scrape targets the refresh orchestrator
// walks: one descriptor per retailer, market zone and segment.
package sources

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/IshaanNene/trendscout/internal/types"
)

// Strategy names how a source's listings are turned into candidates.
type Strategy string

const (
	// ListingOnly reads everything from the listing page.
	ListingOnly Strategy = "listing_only"
	// ListingPlusDetailEnrich follows each card to its detail page for
	// price and technical attributes missing from the listing.
	ListingPlusDetailEnrich Strategy = "listing_detail_enrich"
	// TrendSpotterMultiPage walks several trend pages that expose growth
	// percentages and labels, merging them into one result.
	TrendSpotterMultiPage Strategy = "trend_spotter_multi_page"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{ListingOnly, ListingPlusDetailEnrich, TrendSpotterMultiPage}

func (s Strategy) String() string { return string(s) }

// Valid reports whether s is one of the closed set of strategies.
func (s Strategy) Valid() bool {
	for _, known := range Strategies {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStrategy parses a strategy name. An empty name means ListingOnly.
func ParseStrategy(s string) (Strategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ListingOnly, nil
	}
	st := Strategy(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown strategy %q", s)
	}
	return st, nil
}

// Selectors are the CSS selectors used to read product cards.
type Selectors struct {
	Container string `mapstructure:"container" yaml:"container"`
	Name      string `mapstructure:"name"      yaml:"name"`
	Price     string `mapstructure:"price"     yaml:"price"`
	Image     string `mapstructure:"image"     yaml:"image"`
	Link      string `mapstructure:"link"      yaml:"link"`
	Label     string `mapstructure:"label"     yaml:"label"`
	Growth    string `mapstructure:"growth"    yaml:"growth"`
}

// Descriptor is one immutable scrape target.
type Descriptor struct {
	ID               string           `mapstructure:"id"                 yaml:"id"`
	RetailerBrand    string           `mapstructure:"retailer_brand"     yaml:"retailer_brand"`
	MarketZone       types.MarketZone `mapstructure:"market_zone"        yaml:"market_zone"`
	Segment          types.Segment    `mapstructure:"segment"            yaml:"segment"`
	BaseURL          string           `mapstructure:"base_url"           yaml:"base_url"`
	Path             string           `mapstructure:"path"               yaml:"path"`
	Pages            []string         `mapstructure:"pages"              yaml:"pages"`
	Selectors        Selectors        `mapstructure:"selectors"          yaml:"selectors"`
	ResultCap        int              `mapstructure:"result_cap"         yaml:"result_cap"`
	InitialWait      time.Duration    `mapstructure:"initial_wait"       yaml:"initial_wait"`
	PreScrollSteps   int              `mapstructure:"pre_scroll_steps"   yaml:"pre_scroll_steps"`
	ImageScrollSteps int              `mapstructure:"image_scroll_steps" yaml:"image_scroll_steps"`
	SettleDelay      time.Duration    `mapstructure:"settle_delay"       yaml:"settle_delay"`
	NavTimeout       time.Duration    `mapstructure:"nav_timeout"        yaml:"nav_timeout"`
	ExtraExclusions  []string         `mapstructure:"extra_exclusions"   yaml:"extra_exclusions"`
	Strategy         Strategy         `mapstructure:"strategy"           yaml:"strategy"`
	DetailTimeout    time.Duration    `mapstructure:"detail_timeout"     yaml:"detail_timeout"`
	DetailLimit      int              `mapstructure:"detail_limit"       yaml:"detail_limit"`
	Disabled         bool             `mapstructure:"disabled"           yaml:"disabled"`
}

// URL returns the listing URL, base URL joined with path.
func (d Descriptor) URL() string {
	return joinURL(d.BaseURL, d.Path)
}

// PageURLs returns every page to load: the listing URL followed by any
// extra trend pages, each resolved against the base URL.
func (d Descriptor) PageURLs() []string {
	urls := []string{d.URL()}
	for _, p := range d.Pages {
		urls = append(urls, joinURL(d.BaseURL, p))
	}
	return urls
}

// Host returns the hostname of the listing URL.
func (d Descriptor) Host() string {
	u, err := url.Parse(d.URL())
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Active reports whether the descriptor takes part in full refreshes.
func (d Descriptor) Active() bool { return !d.Disabled }

func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// withDefaults fills zero tuning fields.
func (d Descriptor) withDefaults() Descriptor {
	if d.Strategy == "" {
		d.Strategy = ListingOnly
	}
	if d.ResultCap == 0 {
		d.ResultCap = 60
	}
	if d.SettleDelay == 0 {
		d.SettleDelay = 2 * time.Second
	}
	if d.NavTimeout == 0 {
		d.NavTimeout = 30 * time.Second
	}
	if d.Strategy == ListingPlusDetailEnrich {
		if d.DetailTimeout == 0 {
			d.DetailTimeout = 20 * time.Second
		}
		if d.DetailLimit == 0 {
			d.DetailLimit = d.ResultCap
		}
	}
	if d.Selectors.Link == "" {
		d.Selectors.Link = "a[href]"
	}
	if d.Selectors.Image == "" {
		d.Selectors.Image = "img"
	}
	return d
}

// Validate checks the descriptor's fields.
func (d Descriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("source id is required")
	}
	if d.RetailerBrand == "" {
		return fmt.Errorf("source %s: retailer_brand is required", d.ID)
	}
	if !d.MarketZone.Valid() {
		return fmt.Errorf("source %s: invalid market_zone %q", d.ID, d.MarketZone)
	}
	if !d.Segment.Valid() {
		return fmt.Errorf("source %s: invalid segment %q", d.ID, d.Segment)
	}
	if !d.Strategy.Valid() {
		return fmt.Errorf("source %s: invalid strategy %q", d.ID, d.Strategy)
	}
	u, err := url.Parse(d.URL())
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source %s: invalid url %q", d.ID, d.URL())
	}
	if d.Selectors.Container == "" {
		return fmt.Errorf("source %s: selectors.container is required", d.ID)
	}
	if d.ResultCap < 1 {
		return fmt.Errorf("source %s: result_cap must be >= 1, got %d", d.ID, d.ResultCap)
	}
	if d.PreScrollSteps < 0 || d.ImageScrollSteps < 0 {
		return fmt.Errorf("source %s: scroll steps must be >= 0", d.ID)
	}
	if d.Strategy == TrendSpotterMultiPage && len(d.Pages) == 0 {
		return fmt.Errorf("source %s: %s needs at least one extra page", d.ID, d.Strategy)
	}
	return nil
}
