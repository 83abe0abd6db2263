package extract

import (
	"github.com/IshaanNene/trendscout/internal/exclusion"
	"github.com/IshaanNene/trendscout/internal/sources"
	"github.com/IshaanNene/trendscout/internal/types"
)

// Merge deduplicates passes by detail URL in first-seen order. A later
// sighting of the same URL only fills fields the first one left empty.
func Merge(passes ...[]types.RawCandidate) []types.RawCandidate {
	index := make(map[string]int)
	var out []types.RawCandidate

	for _, pass := range passes {
		for _, c := range pass {
			key := CanonicalizeURL(c.DetailURL)
			i, seen := index[key]
			if !seen {
				c.DetailURL = key
				index[key] = len(out)
				out = append(out, c)
				continue
			}
			backfill(&out[i], c)
		}
	}
	return out
}

func backfill(dst *types.RawCandidate, src types.RawCandidate) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Price == 0 {
		dst.Price = src.Price
	}
	if dst.ImageURL == "" {
		dst.ImageURL = src.ImageURL
	}
	if dst.TrendGrowthPercent == nil {
		dst.TrendGrowthPercent = src.TrendGrowthPercent
	}
	if dst.TrendLabel == "" {
		dst.TrendLabel = src.TrendLabel
	}
	if dst.VisualScore == nil {
		dst.VisualScore = src.VisualScore
	}
	dst.Technical.Fill(src.Technical)
}

// missingImages counts candidates still without an image.
func missingImages(items []types.RawCandidate) int {
	n := 0
	for _, c := range items {
		if c.ImageURL == "" {
			n++
		}
	}
	return n
}

// Filter drops nameless and excluded candidates, stamps the source's
// identity on the rest and applies the result cap.
func Filter(items []types.RawCandidate, src sources.Descriptor) []types.RawCandidate {
	out := make([]types.RawCandidate, 0, len(items))
	for _, c := range items {
		if c.Name == "" || exclusion.IsExcluded(c.Name, src.ExtraExclusions) {
			continue
		}
		c.SourceID = src.ID
		c.RetailerBrand = src.RetailerBrand
		c.MarketZone = src.MarketZone
		c.Segment = src.Segment
		out = append(out, c)
		if src.ResultCap > 0 && len(out) >= src.ResultCap {
			break
		}
	}
	return out
}
