// Package snapshot maintains the weekly market index: one row per
// (week, category, segment, zone) with growth against the previous week
// and a directional signal.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/IshaanNene/trendscout/internal/storage"
	"github.com/IshaanNene/trendscout/internal/types"
)

// DateLayout formats week starts.
const DateLayout = "2006-01-02"

// Index reads and writes snapshot rows through a KV.
type Index struct {
	kv     storage.KV
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithClock replaces the wall clock used to pick the current week.
func WithClock(now func() time.Time) Option {
	return func(ix *Index) { ix.now = now }
}

// New creates an index over kv.
func New(kv storage.KV, logger *slog.Logger, opts ...Option) *Index {
	ix := &Index{
		kv:     kv,
		now:    time.Now,
		logger: logger.With("component", "snapshot_index"),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// WeekStart returns Monday 00:00 UTC of t's week.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}

// Key returns the KV key for a row.
func Key(weekStart time.Time, category string, segment types.Segment, zone types.MarketZone) string {
	return strings.Join([]string{weekStart.Format(DateLayout), category, string(segment), string(zone)}, "|")
}

// SeededGrowth is the cold-start growth used when no prior week exists.
// It is deterministic in category and count and lies in [-15, 35).
func SeededGrowth(category string, count int) float64 {
	v := (len(category)*31 + count*17) % 50
	if v < 0 {
		v += 50
	}
	return float64(v - 15)
}

// DeriveSignal applies the signal rules in priority order.
func DeriveSignal(count int, growth, saturability float64) types.Signal {
	switch {
	case count < 5 && growth > 0:
		return types.SignalEmerging
	case growth > 20 && saturability < 60:
		return types.SignalBuy
	case saturability > 75:
		return types.SignalSell
	case growth < -10:
		return types.SignalSell
	default:
		return types.SignalHold
	}
}

// UpdateSnapshot upserts the current week's row for the key and returns
// it. Rows of past weeks are only read.
func (ix *Index) UpdateSnapshot(ctx context.Context, category string, segment types.Segment, zone types.MarketZone,
	count int, avgTrend, avgSat float64) (types.MarketSnapshot, error) {

	week := WeekStart(ix.now())
	row := types.MarketSnapshot{
		WeekStart:       week.Format(DateLayout),
		Category:        category,
		Segment:         segment,
		MarketZone:      zone,
		ArticleCount:    count,
		AvgTrendScore:   round2(avgTrend),
		AvgSaturability: round2(avgSat),
	}

	prev, ok, err := ix.get(ctx, Key(week.AddDate(0, 0, -7), category, segment, zone))
	if err != nil {
		return types.MarketSnapshot{}, err
	}
	if ok && prev.ArticleCount > 0 {
		row.GrowthPercent = round2(float64(count-prev.ArticleCount) / float64(prev.ArticleCount) * 100)
	} else {
		row.GrowthPercent = SeededGrowth(category, count)
		row.IsSimulated = true
	}
	row.Signal = DeriveSignal(count, row.GrowthPercent, row.AvgSaturability)

	b, err := json.Marshal(row)
	if err != nil {
		return types.MarketSnapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := ix.kv.Put(ctx, Key(week, category, segment, zone), b); err != nil {
		return types.MarketSnapshot{}, fmt.Errorf("put snapshot: %w", err)
	}

	ix.logger.Debug("snapshot updated",
		"week", row.WeekStart,
		"category", category,
		"segment", segment,
		"zone", zone,
		"count", count,
		"growth", row.GrowthPercent,
		"simulated", row.IsSimulated,
		"signal", row.Signal,
	)
	return row, nil
}

// History returns up to weeks rows for the key, newest first, ending at
// the current week. Missing weeks are skipped.
func (ix *Index) History(ctx context.Context, category string, segment types.Segment, zone types.MarketZone, weeks int) ([]types.MarketSnapshot, error) {
	if weeks <= 0 {
		weeks = 1
	}
	week := WeekStart(ix.now())
	var out []types.MarketSnapshot
	for i := 0; i < weeks; i++ {
		row, ok, err := ix.get(ctx, Key(week.AddDate(0, 0, -7*i), category, segment, zone))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// Week returns every row stored for the week containing t, in key order.
func (ix *Index) Week(ctx context.Context, t time.Time) ([]types.MarketSnapshot, error) {
	keys, err := ix.kv.Keys(ctx, WeekStart(t).Format(DateLayout)+"|")
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]types.MarketSnapshot, 0, len(keys))
	for _, k := range keys {
		row, ok, err := ix.get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (ix *Index) get(ctx context.Context, key string) (types.MarketSnapshot, bool, error) {
	b, ok, err := ix.kv.Get(ctx, key)
	if err != nil || !ok {
		if err != nil {
			err = fmt.Errorf("get snapshot %s: %w", key, err)
		}
		return types.MarketSnapshot{}, false, err
	}
	var row types.MarketSnapshot
	if err := json.Unmarshal(b, &row); err != nil {
		return types.MarketSnapshot{}, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return row, true, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
