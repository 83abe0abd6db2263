// Package scoring computes trend strength and saturability for a listing.
// Every function is pure: identical inputs give bit-identical outputs.
package scoring

import (
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

const (
	MinTrendScore = 10.0
	MaxTrendScore = 99.8

	// baseTrendScore is used when no growth signal exists at all.
	baseTrendScore = 65.4

	maxEstimatedGrowth = 50.0
	maxVisualBonus     = 20.0
)

// EstimateInput holds the signals for an internally estimated growth.
type EstimateInput struct {
	ExternalGrowth       *float64
	VisualScore          *float64
	MultiZone            bool
	DaysTracked          int
	RecurrenceInCategory int
}

// EstimateInternalTrendPercent returns the retailer's growth unchanged when
// present, otherwise an additive estimate clamped to [0,50].
func EstimateInternalTrendPercent(in EstimateInput) float64 {
	if in.ExternalGrowth != nil {
		return *in.ExternalGrowth
	}

	var est float64
	switch {
	case in.RecurrenceInCategory >= 10:
		est += 15
	case in.RecurrenceInCategory >= 5:
		est += 10
	case in.RecurrenceInCategory >= 2:
		est += 5
	}

	switch {
	case in.DaysTracked < 14:
		est += 5
	case in.DaysTracked < 30:
		est += 2
	}

	if in.MultiZone {
		est += 10
	}

	if in.VisualScore != nil {
		est += clamp((*in.VisualScore-50)/2.5, 0, maxVisualBonus)
	}

	return clamp(est, 0, maxEstimatedGrowth)
}

// ComputeSaturability estimates how crowded a trend is, in [0,100].
// Higher growth lowers it; long-tracked listings raise it.
func ComputeSaturability(growth *float64, daysTracked int) float64 {
	base := 55.0
	if growth != nil {
		switch g := *growth; {
		case g >= 20:
			base = 22
		case g >= 10:
			base = 38
		case g >= 5:
			base = 48
		}
	}

	switch {
	case daysTracked > 60:
		base += 18
	case daysTracked > 30:
		base += 8
	}

	return clamp(base, 0, 100)
}

var labelBonuses = []struct {
	keyword string
	bonus   float64
}{
	{"rising", 6},
	{"trending", 8},
	{"new", 4},
}

// ComputeTrendScore combines growth, the retailer's trend label and a
// visual sub-score into a viral strength score in [10, 99.8].
func ComputeTrendScore(growth *float64, label string, visual *float64) float64 {
	score := baseTrendScore
	if growth != nil {
		score = 55 + *growth*1.65
	}

	lower := strings.ToLower(label)
	for _, lb := range labelBonuses {
		if strings.Contains(lower, lb.keyword) {
			score += lb.bonus
		}
	}

	if visual != nil {
		score += (*visual - 50) * 0.12
	}

	score += Jitter(label, growth)

	score = math.Round(score*100) / 100
	return clamp(score, MinTrendScore, MaxTrendScore)
}

// Jitter returns a stable offset in [-0.5, 0.5) derived from an FNV-1a hash
// of the label and growth. It only separates otherwise identical scores.
func Jitter(label string, growth *float64) float64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(label)))
	h.Write([]byte{'|'})
	if growth != nil {
		h.Write([]byte(strconv.FormatFloat(*growth, 'f', 4, 64)))
	} else {
		h.Write([]byte("none"))
	}
	return float64(h.Sum64()%1000)/1000 - 0.5
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
