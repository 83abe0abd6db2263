package snapshot

import (
	"context"
	"fmt"
	"sort"

	"github.com/IshaanNene/trendscout/internal/types"
)

// Group is the aggregate of one (category, segment, zone) key in a run.
type Group struct {
	Category        string
	Segment         types.Segment
	MarketZone      types.MarketZone
	Count           int
	AvgTrendScore   float64
	AvgSaturability float64
}

// Rollup groups records by key and averages their scores. Groups come back
// sorted by category, segment, then zone.
func Rollup(records []*types.ProductRecord) []Group {
	type acc struct {
		g     Group
		trend float64
		sat   float64
	}
	byKey := make(map[string]*acc)
	for _, r := range records {
		k := r.Category + "|" + string(r.Segment) + "|" + string(r.MarketZone)
		a, ok := byKey[k]
		if !ok {
			a = &acc{g: Group{Category: r.Category, Segment: r.Segment, MarketZone: r.MarketZone}}
			byKey[k] = a
		}
		a.g.Count++
		a.trend += r.TrendScore
		a.sat += r.Saturability
	}

	out := make([]Group, 0, len(byKey))
	for _, a := range byKey {
		a.g.AvgTrendScore = round2(a.trend / float64(a.g.Count))
		a.g.AvgSaturability = round2(a.sat / float64(a.g.Count))
		out = append(out, a.g)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Segment != b.Segment {
			return a.Segment < b.Segment
		}
		return a.MarketZone < b.MarketZone
	})
	return out
}

// UpdateAll writes one row per group. A failing key is reported and the
// rest are still written.
func (ix *Index) UpdateAll(ctx context.Context, groups []Group) ([]types.MarketSnapshot, []error) {
	var (
		rows []types.MarketSnapshot
		errs []error
	)
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("snapshot: %w", err))
			break
		}
		row, err := ix.UpdateSnapshot(ctx, g.Category, g.Segment, g.MarketZone, g.Count, g.AvgTrendScore, g.AvgSaturability)
		if err != nil {
			errs = append(errs, fmt.Errorf("snapshot %s/%s/%s: %w", g.Category, g.Segment, g.MarketZone, err))
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs
}
