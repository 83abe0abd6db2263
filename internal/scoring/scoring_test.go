package scoring

import (
	"math"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestComputeSaturability(t *testing.T) {
	tests := []struct {
		name   string
		growth *float64
		days   int
		want   float64
	}{
		{"unknown growth", nil, 0, 55},
		{"unknown growth aged", nil, 45, 63},
		{"high growth fresh", f(25), 10, 22},
		{"high growth stale", f(25), 65, 40},
		{"boundary 20", f(20), 0, 22},
		{"tier 10", f(12), 0, 38},
		{"tier 5", f(5), 31, 56},
		{"low growth", f(2), 61, 73},
		{"negative growth", f(-30), 0, 55},
		{"exactly 30 days", f(25), 30, 22},
		{"exactly 60 days", f(25), 60, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeSaturability(tt.growth, tt.days); got != tt.want {
				t.Errorf("ComputeSaturability = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSaturabilityMonotonic(t *testing.T) {
	days := []int{0, 14, 30, 31, 45, 60, 61, 120}
	growths := []float64{-20, 0, 4.9, 5, 9.9, 10, 19.9, 20, 80}

	for _, d := range days {
		prev := math.Inf(1)
		for _, g := range growths {
			got := ComputeSaturability(f(g), d)
			if got > prev {
				t.Errorf("days=%d: saturability increased at growth %v (%v > %v)", d, g, got, prev)
			}
			prev = got
		}
	}

	for _, g := range growths {
		prev := math.Inf(-1)
		for _, d := range days {
			got := ComputeSaturability(f(g), d)
			if got < prev {
				t.Errorf("growth=%v: saturability decreased at days %d", g, d)
			}
			prev = got
		}
	}
}

func TestComputeTrendScoreDeterministicAndBounded(t *testing.T) {
	inputs := []struct {
		growth *float64
		label  string
		visual *float64
	}{
		{nil, "", nil},
		{f(0), "", nil},
		{f(34), "Rising", f(80)},
		{f(300), "Trending new rising", f(100)},
		{f(-80), "", f(0)},
		{nil, "New in", f(50)},
	}

	for _, in := range inputs {
		a := ComputeTrendScore(in.growth, in.label, in.visual)
		b := ComputeTrendScore(in.growth, in.label, in.visual)
		if math.Float64bits(a) != math.Float64bits(b) {
			t.Errorf("non-deterministic score: %v vs %v", a, b)
		}
		if a < MinTrendScore || a > MaxTrendScore {
			t.Errorf("score %v out of bounds", a)
		}
		if r := math.Round(a*100) / 100; r != a {
			t.Errorf("score %v not rounded to 2 decimals", a)
		}
	}

	if got := ComputeTrendScore(f(300), "trending", nil); got != MaxTrendScore {
		t.Errorf("expected clamp to %v, got %v", MaxTrendScore, got)
	}
	if got := ComputeTrendScore(f(-80), "", nil); got != MinTrendScore {
		t.Errorf("expected clamp to %v, got %v", MinTrendScore, got)
	}
}

func TestComputeTrendScoreSignals(t *testing.T) {
	base := ComputeTrendScore(nil, "", nil)
	if math.Abs(base-baseTrendScore) > 0.51 {
		t.Errorf("no-signal score %v should stay near %v", base, baseTrendScore)
	}

	linear := ComputeTrendScore(f(10), "", nil)
	if math.Abs(linear-(55+16.5)) > 0.51 {
		t.Errorf("growth 10 score %v should be near 71.5", linear)
	}

	plain := ComputeTrendScore(f(10), "", nil) - Jitter("", f(10))
	labelled := ComputeTrendScore(f(10), "Trending", nil) - Jitter("Trending", f(10))
	if math.Abs(labelled-plain-8) > 0.02 {
		t.Errorf("trending bonus: got %v, want 8", labelled-plain)
	}

	high := ComputeTrendScore(f(10), "", f(90))
	low := ComputeTrendScore(f(10), "", f(10))
	if high <= low {
		t.Errorf("visual score should raise the trend score: %v <= %v", high, low)
	}
}

func TestJitterRange(t *testing.T) {
	for _, label := range []string{"", "new", "rising", "TRENDING"} {
		for _, g := range []*float64{nil, f(0), f(12.5), f(-3)} {
			j := Jitter(label, g)
			if j < -0.5 || j >= 0.5 {
				t.Errorf("jitter(%q) = %v out of range", label, j)
			}
		}
	}
	if Jitter("new", f(1)) == Jitter("new", f(2)) && Jitter("new", f(2)) == Jitter("new", f(3)) {
		t.Error("jitter should vary with growth")
	}
}

func TestEstimateInternalTrendPercent(t *testing.T) {
	tests := []struct {
		name string
		in   EstimateInput
		want float64
	}{
		{"external wins", EstimateInput{ExternalGrowth: f(72), MultiZone: true}, 72},
		{"external negative untouched", EstimateInput{ExternalGrowth: f(-12)}, -12},
		{"fresh only", EstimateInput{DaysTracked: 3}, 5},
		{"recent", EstimateInput{DaysTracked: 20}, 2},
		{"old", EstimateInput{DaysTracked: 90}, 0},
		{"recurrence tiers", EstimateInput{DaysTracked: 90, RecurrenceInCategory: 2}, 5},
		{"recurrence mid", EstimateInput{DaysTracked: 90, RecurrenceInCategory: 7}, 10},
		{"recurrence high", EstimateInput{DaysTracked: 90, RecurrenceInCategory: 12}, 15},
		{"multi zone", EstimateInput{DaysTracked: 90, MultiZone: true}, 10},
		{"visual bonus", EstimateInput{DaysTracked: 90, VisualScore: f(75)}, 10},
		{"visual below 50", EstimateInput{DaysTracked: 90, VisualScore: f(20)}, 0},
		{"visual capped", EstimateInput{DaysTracked: 90, VisualScore: f(500)}, 20},
		{"clamped to 50", EstimateInput{DaysTracked: 1, RecurrenceInCategory: 20, MultiZone: true, VisualScore: f(100)}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateInternalTrendPercent(tt.in); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
