package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/reposcope/reposcope/internal/storage"
)

const defaultHistoryLimit = 20

// HistoryHandler serves recent analysis records for GET /api/history.
type HistoryHandler struct {
	store storage.Repository
}

func NewHistoryHandler(store storage.Repository) *HistoryHandler {
	return &HistoryHandler{store: store}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.store == nil {
		http.Error(w, "History storage is not configured", http.StatusNotImplemented)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "limit must be an integer between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.store.ListRecentAnalyses(r.Context(), limit)
	if err != nil {
		slog.Error("list analyses failed", "error", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*storage.AnalysisRecord{}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		slog.Warn("encode history failed", "error", err)
	}
}
