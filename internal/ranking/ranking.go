// Package ranking builds the trend listings shown downstream: filtered,
// sorted by trend score and interleaved by brand so no single brand fills
// a top-N list.
package ranking

import (
	"sort"
	"strings"

	"github.com/IshaanNene/trendscout/internal/types"
)

// Options filters and bounds a ranking. Zero fields match everything.
type Options struct {
	Zone             types.MarketZone
	Segment          types.Segment
	AgeBracket       string // "adult" or "kids"
	Limit            int
	IncludeUnbranded bool
}

// Top returns records matching opts, best first, round-robin by brand.
// Unbranded records follow the branded ones when IncludeUnbranded is set
// and are dropped otherwise.
func Top(records []*types.ProductRecord, opts Options) []*types.ProductRecord {
	var branded, unbranded []*types.ProductRecord
	for _, r := range records {
		if !matches(r, opts) {
			continue
		}
		if strings.TrimSpace(r.BrandOrEmpty()) == "" {
			unbranded = append(unbranded, r)
		} else {
			branded = append(branded, r)
		}
	}

	sortByScore(branded)
	out := roundRobin(branded)
	if opts.IncludeUnbranded {
		sortByScore(unbranded)
		out = append(out, unbranded...)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func matches(r *types.ProductRecord, opts Options) bool {
	if opts.Zone != "" && r.MarketZone != opts.Zone {
		return false
	}
	if opts.Segment != "" && r.Segment != opts.Segment {
		return false
	}
	if opts.AgeBracket != "" && r.Segment.AgeBracket() != opts.AgeBracket {
		return false
	}
	return true
}

// sortByScore orders by trend score desc, then saturability asc, then name.
func sortByScore(recs []*types.ProductRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.TrendScore != b.TrendScore {
			return a.TrendScore > b.TrendScore
		}
		if a.Saturability != b.Saturability {
			return a.Saturability < b.Saturability
		}
		return a.Name < b.Name
	})
}

// roundRobin takes one record per brand per round. Brands are visited in
// the order of their best record; recs must already be sorted.
func roundRobin(recs []*types.ProductRecord) []*types.ProductRecord {
	var order []string
	queues := make(map[string][]*types.ProductRecord)
	for _, r := range recs {
		b := strings.ToLower(r.BrandOrEmpty())
		if _, ok := queues[b]; !ok {
			order = append(order, b)
		}
		queues[b] = append(queues[b], r)
	}

	out := make([]*types.ProductRecord, 0, len(recs))
	for len(out) < len(recs) {
		for _, b := range order {
			if q := queues[b]; len(q) > 0 {
				out = append(out, q[0])
				queues[b] = q[1:]
			}
		}
	}
	return out
}
