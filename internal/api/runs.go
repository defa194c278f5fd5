package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tierscore/tierscore/internal/runs"
)

// RunDetail is a run together with its category summaries.
type RunDetail struct {
	runs.Run
	Categories []runs.CategorySummary `json:"categories"`
}

func (h *Handler) requireRuns(w http.ResponseWriter, r *http.Request) bool {
	if h.runs == nil {
		writeError(w, r, http.StatusServiceUnavailable, "persistence is not configured")
		return false
	}
	return true
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.requireRuns(w, r) {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	status := r.URL.Query().Get("status")
	switch status {
	case "", runs.StatusQueued, runs.StatusRunning, runs.StatusCompleted, runs.StatusFailed:
	default:
		writeError(w, r, http.StatusBadRequest, "invalid status")
		return
	}

	list, err := h.runs.ListRuns(r.Context(), status, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list runs")
		writeError(w, r, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if list == nil {
		list = []runs.Run{}
	}
	render.JSON(w, r, map[string]any{"runs": list})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !h.requireRuns(w, r) {
		return
	}
	runID := chi.URLParam(r, "runID")

	if d := h.cache.Get(runID); d != nil {
		render.JSON(w, r, d)
		return
	}

	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, runs.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "run not found")
			return
		}
		h.log.Error().Err(err).Str("run_id", runID).Msg("get run")
		writeError(w, r, http.StatusInternalServerError, "failed to load run")
		return
	}

	summaries, err := h.runs.ListSummaries(r.Context(), runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("list summaries")
		writeError(w, r, http.StatusInternalServerError, "failed to load run")
		return
	}
	if summaries == nil {
		summaries = []runs.CategorySummary{}
	}

	d := &RunDetail{Run: *run, Categories: summaries}
	// Only finished runs are immutable.
	if run.Terminal() {
		h.cache.Put(runID, d)
	}
	render.JSON(w, r, d)
}

func (h *Handler) handleGetRunResult(w http.ResponseWriter, r *http.Request) {
	if !h.requireRuns(w, r) {
		return
	}
	if h.pipeline == nil {
		writeError(w, r, http.StatusServiceUnavailable, "result storage is not configured")
		return
	}
	runID := chi.URLParam(r, "runID")

	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("run_id", runID).Msg("get run")
		}
		writeError(w, r, status, http.StatusText(status))
		return
	}
	if run.Status != runs.StatusCompleted {
		writeError(w, r, http.StatusConflict, "run is "+run.Status)
		return
	}

	data, err := h.pipeline.LoadReport(r.Context(), runID)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("run_id", runID).Msg("load result")
		}
		writeError(w, r, status, "failed to load result")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
