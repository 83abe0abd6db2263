package ranking

import (
	"testing"

	"github.com/IshaanNene/trendscout/internal/types"
)

func rec(name, brand string, score, sat float64, seg types.Segment, zone types.MarketZone) *types.ProductRecord {
	return &types.ProductRecord{
		Name:         name,
		ProductBrand: types.String(brand),
		TrendScore:   score,
		Saturability: sat,
		Segment:      seg,
		MarketZone:   zone,
	}
}

func names(recs []*types.ProductRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var catalog = []*types.ProductRecord{
	rec("nike-1", "Nike", 95, 30, types.SegmentMen, types.ZoneFR),
	rec("nike-2", "Nike", 90, 30, types.SegmentMen, types.ZoneFR),
	rec("nike-3", "Nike", 85, 30, types.SegmentMen, types.ZoneFR),
	rec("diesel-1", "Diesel", 88, 30, types.SegmentMen, types.ZoneFR),
	rec("levis-1", "Levi's", 70, 30, types.SegmentMen, types.ZoneFR),
	rec("plain-1", "", 99, 20, types.SegmentMen, types.ZoneFR),
	rec("kids-1", "Nike", 97, 20, types.SegmentBoys, types.ZoneFR),
	rec("eu-1", "Zara", 99, 20, types.SegmentMen, types.ZoneEU),
}

func TestTopRoundRobin(t *testing.T) {
	got := names(Top(catalog, Options{Zone: types.ZoneFR, Segment: types.SegmentMen}))
	want := []string{"nike-1", "diesel-1", "levis-1", "nike-2", "nike-3"}
	if !equal(got, want) {
		t.Errorf("Top = %v, want %v", got, want)
	}
}

func TestTopUnbrandedAndLimit(t *testing.T) {
	got := names(Top(catalog, Options{Zone: types.ZoneFR, Segment: types.SegmentMen, IncludeUnbranded: true}))
	if got[len(got)-1] != "plain-1" {
		t.Errorf("unbranded item should come last: %v", got)
	}

	got = names(Top(catalog, Options{Zone: types.ZoneFR, Segment: types.SegmentMen, Limit: 2}))
	if !equal(got, []string{"nike-1", "diesel-1"}) {
		t.Errorf("limited Top = %v", got)
	}
}

func TestTopAgeBracket(t *testing.T) {
	got := names(Top(catalog, Options{AgeBracket: "kids"}))
	if !equal(got, []string{"kids-1"}) {
		t.Errorf("kids Top = %v", got)
	}
}

func TestTopTieBreak(t *testing.T) {
	recs := []*types.ProductRecord{
		rec("b", "A", 80, 50, types.SegmentWomen, types.ZoneUS),
		rec("a", "A", 80, 50, types.SegmentWomen, types.ZoneUS),
		rec("c", "A", 80, 40, types.SegmentWomen, types.ZoneUS),
	}
	got := names(Top(recs, Options{}))
	if !equal(got, []string{"c", "a", "b"}) {
		t.Errorf("tie order = %v", got)
	}
}
