package observability

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(testLogger)
	m.ObserveRun("partial")
	m.ObserveSource("zara-fr-women", 42, 3*time.Second, false)
	m.ObserveSource("hm-eu-boys", 0, time.Second, true)
	m.ObserveRecords(40, 12)
	m.ObserveSignal("BUY")

	if v := testutil.ToFloat64(m.RefreshRuns.WithLabelValues("partial")); v != 1 {
		t.Errorf("runs = %v", v)
	}
	if v := testutil.ToFloat64(m.SourceItems.WithLabelValues("zara-fr-women")); v != 42 {
		t.Errorf("items = %v", v)
	}
	if v := testutil.ToFloat64(m.SourceErrors.WithLabelValues("hm-eu-boys")); v != 1 {
		t.Errorf("errors = %v", v)
	}
	if v := testutil.ToFloat64(m.RecordsSaved); v != 40 {
		t.Errorf("saved = %v", v)
	}
	if v := testutil.ToFloat64(m.RecordsDeleted); v != 12 {
		t.Errorf("deleted = %v", v)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(testLogger)
	m.ObserveSignal("EMERGING")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `trendscout_snapshot_signals_total{signal="EMERGING"} 1`) {
		t.Errorf("signal counter missing from exposition:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRun("ok")
	m.ObserveSource("x", 1, time.Second, true)
	m.ObserveRecords(1, 1)
	m.ObserveSignal("HOLD")
}
