package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voyagen/runtv/api"
	"github.com/voyagen/runtv/internal/cache"
	"github.com/voyagen/runtv/internal/config"
	"github.com/voyagen/runtv/internal/fetcher"
	"github.com/voyagen/runtv/internal/health"
	"github.com/voyagen/runtv/internal/metrics"
	"github.com/voyagen/runtv/internal/models"
	"github.com/voyagen/runtv/internal/service"
	"github.com/voyagen/runtv/internal/store"
)

// refreshLockTTL outlives the slowest refresh: four sequential calls at the
// fetch timeout plus the fan-out.
const refreshLockTTL = 2 * time.Minute

// Server holds dependencies for the HTTP API.
type Server struct {
	store  store.Store
	cfg    *config.Config
	loader *service.Loader
	prober *health.Prober
	locker cache.Locker
	mux    *http.ServeMux
}

// New creates a Server and registers routes.
// locker may be nil, in which case refreshes are serialized in process.
func New(s store.Store, cfg *config.Config, loader *service.Loader, prober *health.Prober, locker cache.Locker) *Server {
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	srv := &Server{store: s, cfg: cfg, loader: loader, prober: prober, locker: locker, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Sources
	s.mux.HandleFunc("GET /api/sources", s.handleListSources)
	s.mux.HandleFunc("POST /api/sources", s.handleAddSource)
	s.mux.HandleFunc("GET /api/sources/{id}", s.handleGetSource)
	s.mux.HandleFunc("PATCH /api/sources/{id}", s.handleUpdateSource)
	s.mux.HandleFunc("DELETE /api/sources/{id}", s.handleDeleteSource)
	s.mux.HandleFunc("POST /api/sources/{id}/refresh", s.handleRefreshSource)
	s.mux.HandleFunc("GET /api/sources/{id}/status", s.handleSourceStatus)

	// Snapshot content
	s.mux.HandleFunc("GET /api/sources/{id}/snapshot", s.handleGetSnapshot)
	s.mux.HandleFunc("GET /api/sources/{id}/categories", s.handleListCategories)
	s.mux.HandleFunc("GET /api/sources/{id}/channels", s.handleListChannels)
	s.mux.HandleFunc("GET /api/sources/{id}/movies", s.handleListMovies)
	s.mux.HandleFunc("GET /api/sources/{id}/series", s.handleListSeries)

	// Docs
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
	s.mux.HandleFunc("GET /api/docs/openapi.json", handleOpenAPIJSON)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      withCORS(withLogging(s)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- source handlers ---

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListSources(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if sources == nil {
		sources = []models.Source{}
	}
	metrics.SetSourcesStored(len(sources))
	writeJSON(w, http.StatusOK, sources)
}

type addSourceRequest struct {
	Name string `json:"name"`
	service.Input
}

// loadResponse is the load envelope plus the id of the source it touched.
type loadResponse struct {
	SourceID int64 `json:"source_id,omitempty"`
	service.Result
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req addSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	sourceID, res, err := service.Ingest(r.Context(), s.store, s.loader, req.Name, req.Input)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("ingest: %w", err))
		return
	}
	if !res.Success {
		writeJSON(w, loadStatus(res), loadResponse{Result: res})
		return
	}
	s.countSources(r.Context())
	writeJSON(w, http.StatusCreated, loadResponse{SourceID: sourceID, Result: res})
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, ok := s.sourceFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, src)
}

type updateSourceRequest struct {
	Name    *string `json:"name"`
	Enabled *bool   `json:"enabled"`
}

func (s *Server) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	sourceID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	var req updateSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	fields := store.SourceUpdate{Name: req.Name, Enabled: req.Enabled}
	if err := s.store.UpdateSource(r.Context(), sourceID, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("source %d not found", sourceID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	// Return the updated source.
	src, err := s.store.GetSourceByID(r.Context(), sourceID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	sourceID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.DeleteSource(r.Context(), sourceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("source %d not found", sourceID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.countSources(r.Context())
	writeNoContent(w)
}

func (s *Server) handleRefreshSource(w http.ResponseWriter, r *http.Request) {
	src, ok := s.sourceFromPath(w, r)
	if !ok {
		return
	}
	if !src.Enabled {
		writeErr(w, http.StatusConflict, fmt.Errorf("source %d is disabled", src.ID))
		return
	}

	unlock, err := s.locker.TryLock(r.Context(), cache.RefreshLockKey(src.ID), refreshLockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLocked) {
			writeErr(w, http.StatusConflict, fmt.Errorf("source %d is already refreshing", src.ID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	defer unlock()

	res, err := service.Refresh(r.Context(), s.store, s.loader, src.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("refresh: %w", err))
		return
	}
	if !res.Success {
		writeJSON(w, loadStatus(res), loadResponse{SourceID: src.ID, Result: res})
		return
	}
	writeJSON(w, http.StatusOK, loadResponse{SourceID: src.ID, Result: res})
}

// handleSourceStatus probes the source's host. It reports whether the panel
// answers, not whether the credentials still work.
func (s *Server) handleSourceStatus(w http.ResponseWriter, r *http.Request) {
	src, ok := s.sourceFromPath(w, r)
	if !ok {
		return
	}
	target := src.Origin()
	if data, err := s.store.GetSnapshot(r.Context(), src.ID); err == nil {
		if t := health.TargetFor(data); t != "" {
			target = t
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source_id":  src.ID,
		"refreshing": s.locker.IsLocked(r.Context(), cache.RefreshLockKey(src.ID)),
		"probe":      s.prober.Probe(r.Context(), target),
	})
}

// --- snapshot handlers ---

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	_, data, ok := s.snapshotFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	_, data, ok := s.snapshotFromPath(w, r)
	if !ok {
		return
	}
	v := r.URL.Query().Get("kind")
	if v == "" {
		writeJSON(w, http.StatusOK, data.Categories)
		return
	}
	kind, ok := models.ParseKind(v)
	if !ok {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid kind: %s (use live, movie or series)", v))
		return
	}
	writeJSON(w, http.StatusOK, data.Categories.For(kind))
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	s.listContent(w, r, models.KindLive, "channels", func(d *models.IPTVData, f store.ContentFilter) (any, int) {
		return store.FilterChannels(d, f)
	})
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	s.listContent(w, r, models.KindMovie, "movies", func(d *models.IPTVData, f store.ContentFilter) (any, int) {
		return store.FilterMovies(d, f)
	})
}

func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	s.listContent(w, r, models.KindSeries, "series", func(d *models.IPTVData, f store.ContentFilter) (any, int) {
		return store.FilterSeries(d, f)
	})
}

func (s *Server) listContent(w http.ResponseWriter, r *http.Request, kind models.CategoryKind, field string,
	filter func(*models.IPTVData, store.ContentFilter) (any, int)) {
	f, err := parseContentFilter(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	src, data, ok := s.snapshotFromPath(w, r)
	if !ok {
		return
	}

	etag := contentETag(src, kind, f)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	items, total := filter(data, f)
	// Apply defaults so the response reflects actual values used.
	if f.Limit <= 0 {
		f.Limit = store.DefaultLimit
	}
	if f.Limit > store.MaxLimit {
		f.Limit = store.MaxLimit
	}
	writeJSON(w, http.StatusOK, map[string]any{
		field:    items,
		"total":  total,
		"limit":  f.Limit,
		"offset": f.Offset,
	})
}

func parseContentFilter(r *http.Request) (store.ContentFilter, error) {
	q := r.URL.Query()
	f := store.ContentFilter{
		CategoryID: q.Get("category_id"),
		Search:     q.Get("search"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("invalid limit: %s", v)
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid offset: %s", v)
		}
		f.Offset = n
	}
	return f, nil
}

// contentETag changes whenever the snapshot is replaced or the query differs.
func contentETag(src *models.Source, kind models.CategoryKind, f store.ContentFilter) string {
	var version int64
	if src.LastUpdated != nil {
		version = src.LastUpdated.UnixNano()
	}
	return fmt.Sprintf(`"%d-%x-%s"`, src.ID, version, store.FilterHash(kind, f))
}

// --- lookups ---

func (s *Server) sourceFromPath(w http.ResponseWriter, r *http.Request) (*models.Source, bool) {
	sourceID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return nil, false
	}
	src, err := s.store.GetSourceByID(r.Context(), sourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("source %d not found", sourceID))
			return nil, false
		}
		writeErr(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return src, true
}

func (s *Server) snapshotFromPath(w http.ResponseWriter, r *http.Request) (*models.Source, *models.IPTVData, bool) {
	src, ok := s.sourceFromPath(w, r)
	if !ok {
		return nil, nil, false
	}
	data, err := s.store.GetSnapshot(r.Context(), src.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("source %d has no snapshot", src.ID))
			return nil, nil, false
		}
		writeErr(w, http.StatusInternalServerError, err)
		return nil, nil, false
	}
	return src, data, true
}

func (s *Server) countSources(ctx context.Context) {
	sources, err := s.store.ListSources(ctx)
	if err != nil {
		log.Printf("count sources: %v", err)
		return
	}
	metrics.SetSourcesStored(len(sources))
}

// loadStatus maps a failed load onto an HTTP status.
func loadStatus(res service.Result) int {
	switch {
	case errors.Is(res.Err, service.ErrValidation), errors.Is(res.Err, fetcher.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(res.Err, fetcher.ErrAuthenticationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(res.Err, fetcher.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// --- middleware ---

// withCORS adds CORS headers to every response and handles preflight OPTIONS requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match")
		w.Header().Set("Access-Control-Expose-Headers", "ETag")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging logs each request with method, status, duration and path.
// Query strings are not logged.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		log.Printf("%s %-7s %s\x1b[0m  %s %3d %s\x1b[0m  %s  %s",
			colorForMethod(r.Method), r.Method, "\x1b[0m",
			colorForStatus(sw.status), sw.status, "\x1b[0m",
			formatDuration(time.Since(start)),
			r.URL.Path,
		)
	})
}

func colorForStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "\x1b[32m" // green
	case code >= 300 && code < 400:
		return "\x1b[36m" // cyan
	case code >= 400 && code < 500:
		return "\x1b[33m" // yellow
	default:
		return "\x1b[31m" // red
	}
}

func colorForMethod(method string) string {
	switch method {
	case http.MethodGet:
		return "\x1b[36m"
	case http.MethodPost:
		return "\x1b[32m"
	case http.MethodPatch:
		return "\x1b[33m"
	case http.MethodDelete:
		return "\x1b[31m"
	default:
		return "\x1b[37m"
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// --- helpers ---

// APIError is the standard error envelope for non-load error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// parseID extracts a path parameter by name and parses it as int64.
func parseID(r *http.Request, param string) (int64, error) {
	v := r.PathValue(param)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", param, v)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		log.Printf("ERROR %d: %v", status, err)
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

// --- docs handlers ---

func handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPISpec)
}

// handleOpenAPIJSON serves the parsed document, so a broken document shows up
// as a 500 here rather than in the browser.
func handleOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := api.Load(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func handleSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, swaggerUIHTML)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>RunTV API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box;overflow-y:scroll}*,*:before,*:after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/docs/openapi.yaml",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
    });
  </script>
</body>
</html>`
