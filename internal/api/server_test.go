package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/trendscout/internal/orchestrator"
	"github.com/IshaanNene/trendscout/internal/snapshot"
	"github.com/IshaanNene/trendscout/internal/storage"
	"github.com/IshaanNene/trendscout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeRefresher struct {
	gate   chan struct{}
	err    error
	called []string
}

func (f *fakeRefresher) Refresh(ctx context.Context, ids []string) (*orchestrator.Report, error) {
	f.called = ids
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return &orchestrator.Report{RunID: "r1", SavedCount: 3, Errors: []string{}}, nil
}

func (f *fakeRefresher) State() orchestrator.State { return orchestrator.StateIdle }

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func seededStore(t *testing.T) storage.ProductStore {
	t.Helper()
	store := storage.NewMemoryStore(testLogger)
	for i, b := range []string{"Nike", "Nike", "Diesel", ""} {
		rec := &types.ProductRecord{
			ID: string(rune('a' + i)), Name: "item " + string(rune('a'+i)), ProductBrand: types.String(b),
			SourceBrand: "Zalando", SourceURL: "https://x.fr/" + string(rune('a'+i)),
			MarketZone: types.ZoneFR, Segment: types.SegmentMen, TrendScore: float64(90 - i),
		}
		if err := store.Create(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestRefreshLifecycle(t *testing.T) {
	ref := &fakeRefresher{gate: make(chan struct{})}
	s := NewServer(0, ref, storage.NewMemoryStore(testLogger), nil, testLogger)
	h := s.Handler()

	resp := do(t, h, "POST", "/api/refresh", `{"sources":["zara-fr-women"]}`)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body)
	}
	var run Run
	if err := json.Unmarshal(resp.Body.Bytes(), &run); err != nil {
		t.Fatal(err)
	}
	if run.Status != "running" || run.ID == "" {
		t.Errorf("accepted run = %+v", run)
	}

	if resp := do(t, h, "POST", "/api/refresh", ""); resp.Code != http.StatusConflict {
		t.Errorf("overlapping refresh status = %d", resp.Code)
	}

	close(ref.gate)
	s.Wait()

	resp = do(t, h, "GET", "/api/runs/"+run.ID, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("get run status = %d", resp.Code)
	}
	var done Run
	_ = json.Unmarshal(resp.Body.Bytes(), &done)
	if done.Status != "ok" || done.Report == nil || done.Report.SavedCount != 3 || done.FinishedAt == nil {
		t.Errorf("finished run = %+v", done)
	}
	if len(ref.called) != 1 || ref.called[0] != "zara-fr-women" {
		t.Errorf("refresh called with %v", ref.called)
	}

	if resp := do(t, h, "GET", "/api/runs/nope", ""); resp.Code != http.StatusNotFound {
		t.Errorf("unknown run status = %d", resp.Code)
	}
}

func TestRefreshFailureRecorded(t *testing.T) {
	ref := &fakeRefresher{err: &types.StorageError{Backend: "mongodb", Op: "delete", Err: errors.New("down")}}
	s := NewServer(0, ref, storage.NewMemoryStore(testLogger), nil, testLogger)

	do(t, s.Handler(), "POST", "/api/refresh", "")
	s.Wait()

	var runs []Run
	_ = json.Unmarshal(do(t, s.Handler(), "GET", "/api/runs", "").Body.Bytes(), &runs)
	if len(runs) != 1 || runs[0].Status != "failed" || !strings.Contains(runs[0].Error, "mongodb") {
		t.Errorf("runs = %+v", runs)
	}
}

func TestTopEndpoint(t *testing.T) {
	s := NewServer(0, &fakeRefresher{}, seededStore(t), nil, testLogger)

	resp := do(t, s.Handler(), "GET", "/api/top?zone=fr&segment=men&limit=3", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body)
	}
	var recs []types.ProductRecord
	if err := json.Unmarshal(resp.Body.Bytes(), &recs); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range recs {
		got = append(got, r.Name)
	}
	if strings.Join(got, ",") != "item a,item c,item b" {
		t.Errorf("top = %v", got)
	}

	if resp := do(t, s.Handler(), "GET", "/api/top?zone=MARS", ""); resp.Code != http.StatusBadRequest {
		t.Errorf("bad zone status = %d", resp.Code)
	}
}

func TestSnapshotsEndpoint(t *testing.T) {
	s := NewServer(0, &fakeRefresher{}, storage.NewMemoryStore(testLogger), nil, testLogger)
	if resp := do(t, s.Handler(), "GET", "/api/snapshots", ""); resp.Code != http.StatusNotFound {
		t.Errorf("disabled index status = %d", resp.Code)
	}

	now := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	ix := snapshot.New(storage.NewMemoryKV(), testLogger, snapshot.WithClock(func() time.Time { return now }))
	if _, err := ix.UpdateSnapshot(context.Background(), "jeans", types.SegmentMen, types.ZoneFR, 12, 70, 40); err != nil {
		t.Fatal(err)
	}
	s = NewServer(0, &fakeRefresher{}, storage.NewMemoryStore(testLogger), ix, testLogger)

	var rows []types.MarketSnapshot
	resp := do(t, s.Handler(), "GET", "/api/snapshots?week=2026-03-12", "")
	_ = json.Unmarshal(resp.Body.Bytes(), &rows)
	if resp.Code != http.StatusOK || len(rows) != 1 || rows[0].Category != "jeans" {
		t.Errorf("week rows = %d %+v", resp.Code, rows)
	}

	resp = do(t, s.Handler(), "GET", "/api/snapshots?category=jeans&segment=men&zone=FR&weeks=2", "")
	rows = nil
	_ = json.Unmarshal(resp.Body.Bytes(), &rows)
	if resp.Code != http.StatusOK || len(rows) != 1 {
		t.Errorf("history rows = %d %+v", resp.Code, rows)
	}

	if resp := do(t, s.Handler(), "GET", "/api/snapshots?week=yesterday", ""); resp.Code != http.StatusBadRequest {
		t.Errorf("bad week status = %d", resp.Code)
	}
}
