package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// defaultRunsLimit caps run listings when no explicit limit is given.
const defaultRunsLimit = 50

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListRuns returns indexed runs, newest first.
func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{"invalid limit"})

			return
		}

		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to list runs")
		writeJSON(w, http.StatusInternalServerError, errorResponse{"listing runs"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleGetRun returns one indexed run by its run id.
func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{"run not found"})

		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleTestHistory returns one test's indexed outcome sequence. The
// key path segment is URL-escaped by clients since identities contain
// spaces (`file > title`).
func (s *server) handleTestHistory(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "key")

	key, err := url.PathUnescape(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid test key"})

		return
	}

	outcomes, err := s.store.ListOutcomes(r.Context(), key)
	if err != nil {
		s.log.WithError(err).Error("Failed to list test outcomes")
		writeJSON(w, http.StatusInternalServerError, errorResponse{"listing outcomes"})

		return
	}

	if len(outcomes) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{"test not found"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"testKey":  key,
		"outcomes": outcomes,
	})
}

// handleSummary returns aggregate counts plus the most recent run.
func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	runCount, err := s.store.CountRuns(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to count runs")
		writeJSON(w, http.StatusInternalServerError, errorResponse{"counting runs"})

		return
	}

	testCount, err := s.store.CountTests(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to count tests")
		writeJSON(w, http.StatusInternalServerError, errorResponse{"counting tests"})

		return
	}

	resp := map[string]any{
		"runs":  runCount,
		"tests": testCount,
	}

	if latest, err := s.store.ListRuns(r.Context(), 1); err == nil && len(latest) > 0 {
		resp["latestRun"] = latest[0]
	}

	writeJSON(w, http.StatusOK, resp)
}
