package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/trendscout/internal/config"
	"github.com/IshaanNene/trendscout/internal/orchestrator"
	"github.com/IshaanNene/trendscout/internal/ranking"
	"github.com/IshaanNene/trendscout/internal/snapshot"
	"github.com/IshaanNene/trendscout/internal/storage"
	"github.com/IshaanNene/trendscout/internal/types"
)

// Refresher is the part of the orchestrator the API drives.
type Refresher interface {
	Refresh(ctx context.Context, ids []string) (*orchestrator.Report, error)
	State() orchestrator.State
}

// Run tracks a refresh started through the API.
type Run struct {
	ID         string               `json:"id"`
	Status     string               `json:"status"` // running, ok, partial, failed
	Sources    []string             `json:"sources,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	Report     *orchestrator.Report `json:"report,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Server exposes trend listings, snapshots and refresh control over HTTP.
type Server struct {
	mux       *http.ServeMux
	port      int
	logger    *slog.Logger
	refresher Refresher
	products  storage.ProductStore
	snapshots *snapshot.Index // nil when the index is disabled

	baseCtx context.Context
	wg      sync.WaitGroup

	runsMu  sync.RWMutex
	runs    map[string]*Run
	order   []string
	running string
}

// NewServer creates a new API server. snapshots may be nil.
func NewServer(port int, refresher Refresher, products storage.ProductStore, snapshots *snapshot.Index, logger *slog.Logger) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		port:      port,
		logger:    logger.With("component", "api_server"),
		refresher: refresher,
		products:  products,
		snapshots: snapshots,
		baseCtx:   context.Background(),
		runs:      make(map[string]*Run),
	}

	s.registerRoutes()
	return s
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves until ctx is done, then shuts down and waits for
// any refresh started through the API.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.baseCtx = ctx
	addr := fmt.Sprintf(":%d", s.port)
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	s.logger.Info("API server starting", "addr", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(sctx)
	s.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Wait blocks until background refreshes finish.
func (s *Server) Wait() { s.wg.Wait() }

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	// Refresh runs
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /api/runs", s.handleListRuns)
	s.mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)

	// Read surface
	s.mux.HandleFunc("GET /api/top", s.handleTop)
	s.mux.HandleFunc("GET /api/snapshots", s.handleSnapshots)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.runsMu.RLock()
	running := s.running
	var last *Run
	if n := len(s.order); n > 0 {
		cp := *s.runs[s.order[n-1]]
		last = &cp
	}
	s.runsMu.RUnlock()

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"state":       s.refresher.State().String(),
		"running_run": running,
		"last_run":    last,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Sources []string `json:"sources"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
	}

	run := &Run{
		ID:        uuid.NewString(),
		Status:    "running",
		Sources:   body.Sources,
		StartedAt: time.Now().UTC(),
	}

	s.runsMu.Lock()
	if s.running != "" {
		id := s.running
		s.runsMu.Unlock()
		s.jsonResponse(w, http.StatusConflict, map[string]string{"error": types.ErrRunInProgress.Error(), "run": id})
		return
	}
	s.running = run.ID
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	accepted := *run
	s.runsMu.Unlock()

	s.wg.Add(1)
	go s.execute(run)

	s.jsonResponse(w, http.StatusAccepted, accepted)
}

func (s *Server) execute(run *Run) {
	defer s.wg.Done()

	report, err := s.refresher.Refresh(s.baseCtx, run.Sources)

	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Report = report
	switch {
	case err != nil:
		run.Status = "failed"
		run.Error = err.Error()
		s.logger.Error("refresh failed", "run", run.ID, "error", err)
	default:
		run.Status = report.Status()
	}
	s.running = ""
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()

	runs := make([]*Run, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		runs = append(runs, s.runs[s.order[i]])
	}
	s.jsonResponse(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.runsMu.RLock()
	run, ok := s.runs[id]
	var cp Run
	if ok {
		cp = *run
	}
	s.runsMu.RUnlock()

	if !ok {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	s.jsonResponse(w, http.StatusOK, cp)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := ranking.Options{Limit: 20, AgeBracket: q.Get("age")}
	filter := storage.Filter{Category: q.Get("category")}

	if v := q.Get("zone"); v != "" {
		z, err := types.ParseMarketZone(v)
		if err != nil {
			s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		opts.Zone, filter.MarketZone = z, z
	}
	if v := q.Get("segment"); v != "" {
		seg, err := types.ParseSegment(v)
		if err != nil {
			s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		opts.Segment, filter.Segment = seg, seg
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		opts.Limit = n
	}
	opts.IncludeUnbranded = q.Get("unbranded") == "true"

	recs, err := s.products.FindMany(r.Context(), filter, storage.OrderBy{}, 0)
	if err != nil {
		s.logger.Error("top query failed", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}
	top := ranking.Top(recs, opts)
	if top == nil {
		top = []*types.ProductRecord{}
	}
	s.jsonResponse(w, http.StatusOK, top)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "snapshot index disabled"})
		return
	}
	q := r.URL.Query()

	var (
		rows []types.MarketSnapshot
		err  error
	)
	if cat := q.Get("category"); cat != "" {
		seg, serr := types.ParseSegment(q.Get("segment"))
		zone, zerr := types.ParseMarketZone(q.Get("zone"))
		if serr != nil || zerr != nil {
			s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "category history needs a valid segment and zone"})
			return
		}
		weeks := 8
		if v := q.Get("weeks"); v != "" {
			if weeks, err = strconv.Atoi(v); err != nil {
				s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid weeks"})
				return
			}
		}
		rows, err = s.snapshots.History(r.Context(), cat, seg, zone, weeks)
	} else {
		t := time.Now()
		if v := q.Get("week"); v != "" {
			if t, err = time.Parse(snapshot.DateLayout, v); err != nil {
				s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "week must be YYYY-MM-DD"})
				return
			}
		}
		rows, err = s.snapshots.Week(r.Context(), t)
	}
	if err != nil {
		s.logger.Error("snapshot query failed", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "snapshot index unavailable"})
		return
	}
	if rows == nil {
		rows = []types.MarketSnapshot{}
	}
	s.jsonResponse(w, http.StatusOK, rows)
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
