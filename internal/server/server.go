// Package server exposes the question-answering API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/aurora-qa/internal/cache"
	"github.com/sells-group/aurora-qa/internal/config"
	"github.com/sells-group/aurora-qa/internal/model"
	"github.com/sells-group/aurora-qa/internal/qa"
)

// Asker answers one question. *qa.Service satisfies it.
type Asker interface {
	Ask(ctx context.Context, question string) (*qa.Result, error)
}

// CacheAdmin reports on and resets the message cache. *cache.Cache satisfies it.
type CacheAdmin interface {
	Stats() cache.Stats
	Clear()
}

// RunLister lists recent population attempts. The store satisfies it.
type RunLister interface {
	ListFetchRuns(ctx context.Context, limit int) ([]model.FetchRun, error)
}

// Deps are the collaborators the handlers call. Runs and Gatherer may be nil.
type Deps struct {
	Asker    Asker
	Cache    CacheAdmin
	Runs     RunLister
	Config   *config.Config
	Gatherer prometheus.Gatherer
}

// Server routes HTTP requests to the ask service and cache.
type Server struct {
	router *chi.Mux
	deps   Deps
}

// New builds the router with its middleware stack.
func New(d Deps) *Server {
	s := &Server{router: chi.NewRouter(), deps: d}

	origins := []string{"*"}
	if d.Config != nil && len(d.Config.Server.CORSOrigins) > 0 {
		origins = d.Config.Server.CORSOrigins
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Post("/ask", s.handleAsk)
	s.router.Get("/ask", s.handleAskUsage)
	s.router.Get("/cache-stats", s.handleCacheStats)
	s.router.Delete("/cache", s.handleCacheClear)
	s.router.Get("/fetch-runs", s.handleFetchRuns)
	s.router.Get("/debug/config", s.handleDebugConfig)

	if s.deps.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			zap.L().Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", requestID(r)),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
