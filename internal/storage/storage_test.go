package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/trendscout/internal/config"
	"github.com/IshaanNene/trendscout/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func record(url, retailer string, zone types.MarketZone, score float64) *types.ProductRecord {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return &types.ProductRecord{
		ID:          url,
		Name:        "Veste " + url,
		Category:    "jackets",
		MarketZone:  zone,
		Segment:     types.SegmentWomen,
		SourceBrand: retailer,
		SourceURL:   url,
		TrendScore:  score,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMemoryStoreUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(testLogger())

	for round := 0; round < 2; round++ {
		for _, url := range []string{"https://zara.com/1", "https://zara.com/2"} {
			created, err := s.Upsert(ctx, record(url, "Zara", types.ZoneFR, 70))
			if err != nil {
				t.Fatalf("upsert: %v", err)
			}
			if created != (round == 0) {
				t.Errorf("round %d: created = %v", round, created)
			}
		}
	}
	n, _ := s.Count(ctx, Filter{})
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestMemoryStoreUpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(testLogger())
	orig := record("https://hm.com/a", "H&M", types.ZoneEU, 50)
	if err := s.Create(ctx, orig); err != nil {
		t.Fatal(err)
	}

	next := record("https://hm.com/a", "H&M", types.ZoneEU, 80)
	next.ID = "other"
	next.CreatedAt = time.Now()
	if err := s.Update(ctx, next.Key(), next); err != nil {
		t.Fatal(err)
	}

	got, _ := s.FindMany(ctx, Filter{SourceURL: "https://hm.com/a"}, OrderBy{}, 0)
	if len(got) != 1 || got[0].ID != orig.ID || !got[0].CreatedAt.Equal(orig.CreatedAt) || got[0].TrendScore != 80 {
		t.Errorf("unexpected record after update: %+v", got)
	}

	missing := record("https://hm.com/zzz", "H&M", types.ZoneEU, 1)
	if err := s.Update(ctx, missing.Key(), missing); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreFindDeleteCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(testLogger())
	seed := []*types.ProductRecord{
		record("u1", "Zara", types.ZoneFR, 60),
		record("u2", "Zara", types.ZoneFR, 90),
		record("u3", "H&M", types.ZoneEU, 75),
		record("u4", "ASOS", types.ZoneUS, 40),
	}
	for _, r := range seed {
		if err := s.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	top, err := s.FindMany(ctx, Filter{}, OrderBy{Field: OrderTrendScore, Desc: true}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].SourceURL != "u2" || top[1].SourceURL != "u3" {
		t.Errorf("unexpected order: %v, %v", top[0].SourceURL, top[1].SourceURL)
	}

	if _, err := s.FindMany(ctx, Filter{}, OrderBy{Field: "price"}, 0); err == nil {
		t.Error("expected error for unknown order field")
	}

	deleted, err := s.DeleteMany(ctx, Filter{SourceBrands: []string{"zara", "h&m"}})
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	if n, _ := s.Count(ctx, Filter{}); n != 1 {
		t.Errorf("remaining = %d, want 1", n)
	}
	if n, _ := s.Count(ctx, Filter{MarketZone: types.ZoneUS}); n != 1 {
		t.Errorf("US count = %d, want 1", n)
	}
}

func TestMemoryStoreFailure(t *testing.T) {
	s := NewMemoryStore(testLogger())
	s.FailWith = errors.New("disk on fire")
	_, err := s.Upsert(context.Background(), record("u1", "Zara", types.ZoneFR, 1))
	if !types.IsStorageError(err) {
		t.Errorf("expected StorageError, got %v", err)
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	rec := record("u1", "Zara", "MARS", 1)
	if _, err := NewMemoryStore(testLogger()).Upsert(context.Background(), rec); !errors.Is(err, types.ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

func testKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	puts := map[string]string{
		"2026-03-02|jackets|women|FR": `{"articleCount":4}`,
		"2026-03-02|jeans|men|FR":     `{"articleCount":9}`,
		"2026-02-23|jackets|women|FR": `{"articleCount":2}`,
	}
	for k, v := range puts {
		if err := kv.Put(ctx, k, []byte(v)); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	if err := kv.Put(ctx, "2026-03-02|jeans|men|FR", []byte(`{"articleCount":10}`)); err != nil {
		t.Fatal(err)
	}

	v, ok, err := kv.Get(ctx, "2026-03-02|jeans|men|FR")
	if err != nil || !ok || string(v) != `{"articleCount":10}` {
		t.Errorf("get after overwrite = %q %v %v", v, ok, err)
	}

	keys, err := kv.Keys(ctx, "2026-03-02|")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "2026-03-02|jackets|women|FR" || keys[1] != "2026-03-02|jeans|men|FR" {
		t.Errorf("keys = %v", keys)
	}
}

func TestMemoryKV(t *testing.T) {
	testKV(t, NewMemoryKV())
}

func TestFileKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "market_snapshots.json")
	kv, err := NewFileKV(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	testKV(t, kv)

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}

	reopened, err := NewFileKV(path, testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, ok, _ := reopened.Get(context.Background(), "2026-02-23|jackets|women|FR")
	if !ok || string(v) != `{"articleCount":2}` {
		t.Errorf("value not persisted: %q", v)
	}

	spaced := []byte("{\n  \"articleCount\": 7,\n  \"signal\": \"HOLD\"\n}")
	if err := reopened.Put(context.Background(), "spaced", spaced); err != nil {
		t.Fatal(err)
	}
	before, _, _ := reopened.Get(context.Background(), "spaced")
	again, err := NewFileKV(path, testLogger())
	if err != nil {
		t.Fatalf("second reopen: %v", err)
	}
	after, _, _ := again.Get(context.Background(), "spaced")
	if string(before) != string(after) || string(after) != `{"articleCount":7,"signal":"HOLD"}` {
		t.Errorf("value changed across reopen: %q then %q", before, after)
	}

	if err := reopened.Put(context.Background(), "bad", []byte("not json")); err == nil {
		t.Error("expected error for invalid JSON value")
	}
}

func TestFileKVCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileKV(path, testLogger()); !types.IsStorageError(err) {
		t.Errorf("expected StorageError, got %v", err)
	}
}

func TestSQLiteKV(t *testing.T) {
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "snap.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer kv.Close()
	testKV(t, kv)

	// LIKE wildcards in the prefix are literal.
	if err := kv.Put(context.Background(), "a_b", []byte(`1`)); err != nil {
		t.Fatal(err)
	}
	if err := kv.Put(context.Background(), "axb", []byte(`2`)); err != nil {
		t.Fatal(err)
	}
	keys, _ := kv.Keys(context.Background(), "a_")
	if len(keys) != 1 || keys[0] != "a_b" {
		t.Errorf("keys = %v", keys)
	}
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "refresh")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Acquire(ctx, "refresh"); !errors.Is(err, types.ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}
	if _, err := l.Acquire(ctx, "other"); err != nil {
		t.Errorf("independent lock should succeed: %v", err)
	}
	_ = release()
	_ = release()
	if _, err := l.Acquire(ctx, "refresh"); err != nil {
		t.Errorf("lock should be free after release: %v", err)
	}
}

func TestFilterMatch(t *testing.T) {
	r := record("u1", "Zalando", types.ZoneFR, 1)
	tests := []struct {
		f    Filter
		want bool
	}{
		{Filter{}, true},
		{Filter{SourceBrands: []string{"ZALANDO"}}, true},
		{Filter{SourceBrands: []string{"Zara"}}, false},
		{Filter{MarketZone: types.ZoneEU}, false},
		{Filter{Segment: types.SegmentWomen, Category: "jackets"}, true},
		{Filter{Category: "jeans"}, false},
	}
	for i, tt := range tests {
		if got := tt.f.Match(r); got != tt.want {
			t.Errorf("case %d: Match = %v, want %v", i, got, tt.want)
		}
	}
}

func TestOpenUnsupportedBackends(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"storage type", func(c *config.Config) { c.Storage.Type = "bogus" }, "unsupported storage type"},
		{"snapshot backend", func(c *config.Config) { c.Snapshot.Backend = "bogus" }, "unsupported snapshot backend"},
		{"lock", func(c *config.Config) { c.Refresh.Lock = "bogus" }, "unsupported lock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Storage.Type = "memory"
			cfg.Snapshot.Backend = "memory"
			tt.mutate(cfg)

			b, err := Open(context.Background(), cfg, testLogger())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
			if b != nil {
				t.Errorf("backends = %+v, want nil", b)
			}
		})
	}
}

func TestOpenFileSnapshots(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Type = "memory"
	cfg.Snapshot.Backend = "file"
	cfg.Snapshot.Path = filepath.Join(t.TempDir(), "snap.json")

	b, err := Open(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if b.Products == nil || b.Snapshots == nil || b.Locker == nil {
		t.Errorf("backends = %+v", b)
	}
}
