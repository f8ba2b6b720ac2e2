// Package api exposes the sky-geometry core and the TLE/snapshot layers as a
// JSON HTTP API, plus the SSE position stream.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/satview/satview/internal/auth"
	"github.com/satview/satview/internal/health"
	"github.com/satview/satview/internal/metrics"
	"github.com/satview/satview/internal/snapshot"
	"github.com/satview/satview/internal/stream"
	"github.com/satview/satview/internal/tle"
	"github.com/satview/satview/internal/track"
)

// Deps bundles the service components the handlers read from.
type Deps struct {
	Store     *tle.Store
	Cache     *snapshot.Cache
	Refresher *tle.Refresher
	Stream    *stream.Handler
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	store     *tle.Store
	cache     *snapshot.Cache
	refresher *tle.Refresher
	tracker   *track.Tracker
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, deps Deps, authCfg auth.Config, logger *slog.Logger) *Server {
	s := &Server{
		logger:    logger,
		store:     deps.Store,
		cache:     deps.Cache,
		refresher: deps.Refresher,
		tracker:   track.New(logger),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(func() bool {
		return s.store.Count() > 0
	}))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/positions", s.handlePositions)
	mux.HandleFunc("GET /api/v1/satellites/{id}/position", s.handleSatellitePosition)
	mux.HandleFunc("GET /api/v1/satellites/{id}/track", s.handleSatelliteTrack)
	mux.HandleFunc("GET /api/v1/satellites/{id}/coverage", s.handleSatelliteCoverage)
	mux.HandleFunc("GET /api/v1/satellites/{id}/look", s.handleSatelliteLook)
	mux.HandleFunc("GET /api/v1/visible", s.handleVisible)
	mux.HandleFunc("GET /api/v1/passes", s.handlePasses)
	mux.HandleFunc("GET /api/v1/terminator", s.handleTerminator)
	mux.HandleFunc("GET /api/v1/tle/metadata", s.handleTLEMetadata)
	mux.HandleFunc("POST /api/v1/tle/fetch", s.handleTLEFetch)
	mux.HandleFunc("GET /api/v1/snapshot/stats", s.handleSnapshotStats)

	if deps.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/positions", deps.Stream.HandlePositions)
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// Long-lived SSE responses manage their own deadlines through
		// http.ResponseController; a blanket write timeout would kill them.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
