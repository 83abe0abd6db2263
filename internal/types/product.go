package types

import (
	"fmt"
	"strings"
	"time"
)

// Technical holds optional attributes usually found only on a detail page.
type Technical struct {
	Composition      string   `json:"composition,omitempty"      bson:"composition,omitempty"`
	CareInstructions string   `json:"careInstructions,omitempty" bson:"careInstructions,omitempty"`
	Color            string   `json:"color,omitempty"            bson:"color,omitempty"`
	Sizes            []string `json:"sizes,omitempty"            bson:"sizes,omitempty"`
	CountryOfOrigin  string   `json:"countryOfOrigin,omitempty"  bson:"countryOfOrigin,omitempty"`
	ArticleNumber    string   `json:"articleNumber,omitempty"    bson:"articleNumber,omitempty"`
}

// IsZero reports whether no technical attribute is set.
func (t Technical) IsZero() bool {
	return t.Composition == "" && t.CareInstructions == "" && t.Color == "" &&
		len(t.Sizes) == 0 && t.CountryOfOrigin == "" && t.ArticleNumber == ""
}

// Fill copies every field of other that is empty on t.
func (t *Technical) Fill(other Technical) {
	if t.Composition == "" {
		t.Composition = other.Composition
	}
	if t.CareInstructions == "" {
		t.CareInstructions = other.CareInstructions
	}
	if t.Color == "" {
		t.Color = other.Color
	}
	if len(t.Sizes) == 0 {
		t.Sizes = other.Sizes
	}
	if t.CountryOfOrigin == "" {
		t.CountryOfOrigin = other.CountryOfOrigin
	}
	if t.ArticleNumber == "" {
		t.ArticleNumber = other.ArticleNumber
	}
}

// RawCandidate is one product card pulled from a listing during a single
// extraction pass. It is never persisted as-is.
type RawCandidate struct {
	Name               string
	Price              float64 // 0 when unknown
	ImageURL           string  // empty until resolved
	DetailURL          string
	MarketZone         MarketZone
	RetailerBrand      string
	Segment            Segment
	TrendGrowthPercent *float64
	TrendLabel         string
	VisualScore        *float64
	Technical          Technical
	SourceID           string
}

// RecordKey is the natural key of a persisted listing.
type RecordKey struct {
	SourceURL   string
	SourceBrand string
	MarketZone  MarketZone
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%s|%s|%s", strings.ToLower(k.SourceBrand), k.MarketZone, k.SourceURL)
}

// ProductRecord is the cleaned, scored, persisted form of a listing.
type ProductRecord struct {
	ID                 string     `json:"id"                           bson:"_id"`
	Name               string     `json:"name"                         bson:"name"`
	Category           string     `json:"category"                     bson:"category"`
	ProductBrand       *string    `json:"productBrand"                 bson:"productBrand"`
	AveragePrice       float64    `json:"averagePrice"                 bson:"averagePrice"`
	ImageURL           string     `json:"imageUrl,omitempty"           bson:"imageUrl,omitempty"`
	MarketZone         MarketZone `json:"marketZone"                   bson:"marketZone"`
	Segment            Segment    `json:"segment"                      bson:"segment"`
	SourceBrand        string     `json:"sourceBrand"                  bson:"sourceBrand"`
	SourceURL          string     `json:"sourceUrl"                    bson:"sourceUrl"`
	TrendGrowthPercent *float64   `json:"trendGrowthPercent"           bson:"trendGrowthPercent"`
	GrowthEstimated    bool       `json:"growthEstimated"              bson:"growthEstimated"`
	TrendLabel         *string    `json:"trendLabel"                   bson:"trendLabel"`
	TrendScore         float64    `json:"trendScore"                   bson:"trendScore"`
	Saturability       float64    `json:"saturability"                 bson:"saturability"`
	Technical          *Technical `json:"technical,omitempty"          bson:"technical,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"                    bson:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"                    bson:"updatedAt"`
}

// Key returns the record's natural key.
func (r *ProductRecord) Key() RecordKey {
	return RecordKey{SourceURL: r.SourceURL, SourceBrand: r.SourceBrand, MarketZone: r.MarketZone}
}

// Validate checks the fields every backend relies on.
func (r *ProductRecord) Validate() error {
	switch {
	case r.SourceURL == "":
		return fmt.Errorf("%w: empty sourceUrl", ErrInvalidRecord)
	case r.SourceBrand == "":
		return fmt.Errorf("%w: empty sourceBrand", ErrInvalidRecord)
	case !r.MarketZone.Valid():
		return fmt.Errorf("%w: market zone %q", ErrInvalidRecord, r.MarketZone)
	case r.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidRecord)
	}
	return nil
}

// BrandOrEmpty returns the product brand or "" when it is unknown.
func (r *ProductRecord) BrandOrEmpty() string {
	if r.ProductBrand == nil {
		return ""
	}
	return *r.ProductBrand
}

// Clone returns a deep copy of r.
func (r *ProductRecord) Clone() *ProductRecord {
	c := *r
	if r.ProductBrand != nil {
		b := *r.ProductBrand
		c.ProductBrand = &b
	}
	if r.TrendGrowthPercent != nil {
		g := *r.TrendGrowthPercent
		c.TrendGrowthPercent = &g
	}
	if r.TrendLabel != nil {
		l := *r.TrendLabel
		c.TrendLabel = &l
	}
	if r.Technical != nil {
		t := *r.Technical
		t.Sizes = append([]string(nil), r.Technical.Sizes...)
		c.Technical = &t
	}
	return &c
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
