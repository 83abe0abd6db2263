package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks refresh runs on a private Prometheus registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RefreshRuns     *prometheus.CounterVec
	SourceItems     *prometheus.CounterVec
	SourceErrors    *prometheus.CounterVec
	SourceDuration  *prometheus.HistogramVec
	RecordsSaved    prometheus.Counter
	RecordsDeleted  prometheus.Counter
	SnapshotSignals *prometheus.CounterVec

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RefreshRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trendscout_refresh_runs_total",
			Help: "Refresh runs by outcome",
		}, []string{"status"}),
		SourceItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trendscout_source_items_total",
			Help: "Raw candidates extracted per source",
		}, []string{"source"}),
		SourceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trendscout_source_errors_total",
			Help: "Failed source extractions",
		}, []string{"source"}),
		SourceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trendscout_source_duration_seconds",
			Help:    "Time spent extracting one source",
			Buckets: []float64{5, 15, 30, 60, 120, 240, 480},
		}, []string{"source"}),
		RecordsSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "trendscout_records_saved_total",
			Help: "Product records upserted",
		}),
		RecordsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "trendscout_records_deleted_total",
			Help: "Product records removed by bulk deletes",
		}),
		SnapshotSignals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trendscout_snapshot_signals_total",
			Help: "Snapshot rows written by derived signal",
		}, []string{"signal"}),
		logger: logger.With("component", "metrics"),
	}
}

// ObserveRun counts a finished run; status is "ok", "partial" or "failed".
func (m *Metrics) ObserveRun(status string) {
	if m == nil {
		return
	}
	m.RefreshRuns.WithLabelValues(status).Inc()
}

// ObserveSource records one source's extraction.
func (m *Metrics) ObserveSource(source string, items int, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.SourceItems.WithLabelValues(source).Add(float64(items))
	m.SourceDuration.WithLabelValues(source).Observe(d.Seconds())
	if failed {
		m.SourceErrors.WithLabelValues(source).Inc()
	}
}

// ObserveRecords adds saved and deleted record counts.
func (m *Metrics) ObserveRecords(saved, deleted int64) {
	if m == nil {
		return
	}
	m.RecordsSaved.Add(float64(saved))
	m.RecordsDeleted.Add(float64(deleted))
}

// ObserveSignal counts one snapshot row by signal.
func (m *Metrics) ObserveSignal(signal string) {
	if m == nil {
		return
	}
	m.SnapshotSignals.WithLabelValues(signal).Inc()
}

// Handler serves the registry in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server in the background. The caller
// shuts it down through the returned server.
func (m *Metrics) StartServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return srv
}
