package types

import (
	"fmt"
	"strings"
)

// MarketZone is a coarse geographic grouping of listings.
type MarketZone string

const (
	ZoneFR   MarketZone = "FR"
	ZoneEU   MarketZone = "EU"
	ZoneUS   MarketZone = "US"
	ZoneASIA MarketZone = "ASIA"
)

// Zones lists every supported market zone.
var Zones = []MarketZone{ZoneFR, ZoneEU, ZoneUS, ZoneASIA}

// Valid reports whether z is a supported zone.
func (z MarketZone) Valid() bool {
	for _, known := range Zones {
		if z == known {
			return true
		}
	}
	return false
}

// ParseMarketZone parses a zone name case-insensitively.
func ParseMarketZone(s string) (MarketZone, error) {
	z := MarketZone(strings.ToUpper(strings.TrimSpace(s)))
	if !z.Valid() {
		return "", fmt.Errorf("unknown market zone %q", s)
	}
	return z, nil
}

// Segment is the target demographic of a listing.
type Segment string

const (
	SegmentMen   Segment = "men"
	SegmentWomen Segment = "women"
	SegmentBoys  Segment = "boys"
	SegmentGirls Segment = "girls"
)

// Segments lists every supported segment.
var Segments = []Segment{SegmentMen, SegmentWomen, SegmentBoys, SegmentGirls}

// Valid reports whether s is a supported segment.
func (s Segment) Valid() bool {
	for _, known := range Segments {
		if s == known {
			return true
		}
	}
	return false
}

// AgeBracket groups segments into "adult" and "kids".
func (s Segment) AgeBracket() string {
	switch s {
	case SegmentBoys, SegmentGirls:
		return "kids"
	default:
		return "adult"
	}
}

// ParseSegment parses a segment name case-insensitively.
func ParseSegment(s string) (Segment, error) {
	seg := Segment(strings.ToLower(strings.TrimSpace(s)))
	if !seg.Valid() {
		return "", fmt.Errorf("unknown segment %q", s)
	}
	return seg, nil
}

// Signal is the directional recommendation derived from a weekly snapshot.
type Signal string

const (
	SignalBuy      Signal = "BUY"
	SignalHold     Signal = "HOLD"
	SignalSell     Signal = "SELL"
	SignalEmerging Signal = "EMERGING"
)

// MarketSnapshot is one weekly rollup row for a (category, segment, zone) key.
type MarketSnapshot struct {
	WeekStart       string     `json:"weekStart"`
	Category        string     `json:"category"`
	Segment         Segment    `json:"segment"`
	MarketZone      MarketZone `json:"marketZone"`
	ArticleCount    int        `json:"articleCount"`
	AvgTrendScore   float64    `json:"avgTrendScore"`
	AvgSaturability float64    `json:"avgSaturability"`
	GrowthPercent   float64    `json:"growthPercent"`
	IsSimulated     bool       `json:"isSimulated"`
	Signal          Signal     `json:"signal"`
}
