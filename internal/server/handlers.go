package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/aurora-qa/internal/cache"
	"github.com/sells-group/aurora-qa/internal/qa"
)

// maxAskBody bounds the POST /ask request body.
const maxAskBody = 64 << 10

// retryAfterSecs is sent with 503 responses while a fetch is in flight.
const retryAfterSecs = 1

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question any `json:"question"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAskBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "Request body must be valid JSON")
		return
	}

	question, ok := req.Question.(string)
	if !ok || question == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "Question field is required and must be a string")
		return
	}

	res, err := s.deps.Asker.Ask(r.Context(), question)
	if err != nil {
		s.writeAskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": res.Answer})
}

func (s *Server) writeAskError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *qa.InputError
	switch {
	case errors.As(err, &inputErr):
		writeError(w, http.StatusBadRequest, "Invalid request", "Question cannot be empty")
	case errors.Is(err, cache.ErrConcurrentFetch):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable", err.Error())
	default:
		zap.L().Error("server: ask failed",
			zap.String("request_id", requestID(r)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

func (s *Server) handleAskUsage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Question Answering API",
		"usage":   `Send POST request with JSON body: { "question": "your question here" }`,
		"examples": []string{
			"When is Layla planning her trip to London?",
			"How many cars does Vikram Desai have?",
			"What are Amira's favorite restaurants?",
		},
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Cache.Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.deps.Cache.Clear()
	zap.L().Info("server: cache cleared", zap.String("request_id", requestID(r)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFetchRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		writeError(w, http.StatusNotFound, "Not found", "Fetch-run history is disabled")
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.deps.Runs.ListFetchRuns(r.Context(), limit)
	if err != nil {
		zap.L().Error("server: list fetch runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleDebugConfig(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Config == nil {
		writeError(w, http.StatusNotFound, "Not found", "")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Config.Debug())
}
