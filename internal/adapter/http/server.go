// Package http exposes the read-only API and dashboard over the labor dataset,
// plus the usual health, readiness, and metrics endpoints.
package http

import (
	"context"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/labor-stats-etl/internal/catalog"
	"github.com/couchcryptid/labor-stats-etl/internal/domain"
)

//go:embed dashboard.html
var dashboardHTML []byte

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// DatasetLoader provides the current persisted dataset. The server reloads it
// per request so readers always see the latest committed state; the store's
// atomic replacement guarantees a consistent file.
type DatasetLoader interface {
	Load() (*domain.Dataset, error)
}

// Server exposes the dataset API, dashboard, and operational endpoints.
type Server struct {
	httpServer *http.Server
	catalog    *catalog.Catalog
	store      DatasetLoader
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(addr string, cat *catalog.Catalog, store DatasetLoader, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		catalog: cat,
		store:   store,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/observations", s.handleObservations)
	mux.HandleFunc("GET /api/latest", s.handleLatest)
	mux.HandleFunc("GET /api/download", s.handleDownload)
	mux.HandleFunc("GET /{$}", s.handleDashboard)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// catalogEntry is the JSON shape of one catalog series.
type catalogEntry struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	entries := s.catalog.Entries()
	out := make([]catalogEntry, len(entries))
	for i, e := range entries {
		out[i] = catalogEntry{Name: e.Name, ID: e.ID, Label: e.Label}
	}
	writeJSON(w, http.StatusOK, map[string]any{"series": out})
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	series, ok := s.parseSeriesParam(w, r)
	if !ok {
		return
	}

	fromYear, ok := parseYearParam(w, r, "from")
	if !ok {
		return
	}
	toYear, ok := parseYearParam(w, r, "to")
	if !ok {
		return
	}
	if toYear > 0 && fromYear > toYear {
		writeError(w, http.StatusBadRequest, "from year is after to year")
		return
	}

	ds, err := s.loadDataset(w)
	if err != nil {
		return
	}

	obs := ds.Filter(series, fromYear, toYear)
	if obs == nil {
		obs = []domain.Observation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"observations": obs,
		"count":        len(obs),
	})
}

// latestEntry is the JSON shape of a series' most recent observation.
type latestEntry struct {
	Series string   `json:"series"`
	Label  string   `json:"label"`
	Date   string   `json:"date"`
	Value  *float64 `json:"value"`
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	ds, err := s.loadDataset(w)
	if err != nil {
		return
	}

	latest := ds.LatestBySeries()
	out := make([]latestEntry, 0, len(latest))
	for series, o := range latest {
		label := series
		if e, ok := s.catalog.Lookup(series); ok {
			label = e.Label
		}
		out = append(out, latestEntry{
			Series: series,
			Label:  label,
			Date:   o.Period.Date().Format("2006-01-02"),
			Value:  o.Value,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Series < out[j].Series })
	writeJSON(w, http.StatusOK, map[string]any{"latest": out})
}

// handleDownload serves the filtered dataset pivoted to wide CSV: a date
// column plus one labeled column per series, the spreadsheet-friendly shape
// the dashboard links to.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	series, ok := s.parseSeriesParam(w, r)
	if !ok {
		return
	}
	fromYear, ok := parseYearParam(w, r, "from")
	if !ok {
		return
	}
	toYear, ok := parseYearParam(w, r, "to")
	if !ok {
		return
	}
	if toYear > 0 && fromYear > toYear {
		writeError(w, http.StatusBadRequest, "from year is after to year")
		return
	}

	ds, err := s.loadDataset(w)
	if err != nil {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="labor_stats.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := writeWideCSV(w, s.catalog, ds.Filter(series, fromYear, toYear)); err != nil {
		s.logger.Error("csv download write failed", "error", err)
	}
}

// writeWideCSV pivots observations into one row per month. Columns follow
// catalog order, using display labels as headers; series outside the catalog
// come last under their raw names. Absent values are empty cells.
func writeWideCSV(w io.Writer, cat *catalog.Catalog, obs []domain.Observation) error {
	present := make(map[string]bool)
	for _, o := range obs {
		present[o.Series] = true
	}

	var names []string
	for _, e := range cat.Entries() {
		if present[e.Name] {
			names = append(names, e.Name)
			delete(present, e.Name)
		}
	}
	var extra []string
	for name := range present {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	names = append(names, extra...)

	header := make([]string, 0, len(names)+1)
	header = append(header, "date")
	for _, name := range names {
		label := name
		if e, ok := cat.Lookup(name); ok {
			label = e.Label
		}
		header = append(header, label)
	}

	cells := make(map[domain.Period]map[string]*float64)
	var periods []domain.Period
	for _, o := range obs {
		row, ok := cells[o.Period]
		if !ok {
			row = make(map[string]*float64, len(names))
			cells[o.Period] = row
			periods = append(periods, o.Period)
		}
		row[o.Series] = o.Value
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range periods {
		rec := make([]string, 0, len(header))
		rec = append(rec, p.Date().Format("2006-01-02"))
		for _, name := range names {
			v, ok := cells[p][name]
			if !ok || v == nil {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, strconv.FormatFloat(*v, 'f', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dashboardHTML)
}

// parseSeriesParam validates the comma-separated series filter against the
// catalog. An empty parameter selects all series.
func (s *Server) parseSeriesParam(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	raw := r.URL.Query().Get("series")
	if raw == "" {
		return nil, true
	}

	var series []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := s.catalog.Lookup(name); !ok {
			writeError(w, http.StatusBadRequest, "unknown series: "+name)
			return nil, false
		}
		series = append(series, name)
	}
	if len(series) == 0 {
		writeError(w, http.StatusBadRequest, "series parameter has no series names")
		return nil, false
	}
	return series, true
}

func parseYearParam(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "invalid "+key+" year")
		return 0, false
	}
	return year, true
}

// loadDataset reloads the dataset and writes a 500 on failure. A missing
// dataset file is not a failure; it reads as empty.
func (s *Server) loadDataset(w http.ResponseWriter) (*domain.Dataset, error) {
	ds, err := s.store.Load()
	if err != nil {
		s.logger.Error("dataset load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "dataset unavailable")
		return nil, err
	}
	return ds, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
