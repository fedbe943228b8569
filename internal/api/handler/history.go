package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sbsidd17/yt-dl-api/internal/domain"
)

// HistoryStore answers history queries.
type HistoryStore interface {
	Query(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error)
	Persistent() bool
}

// HistoryHandler serves the resolution history.
type HistoryHandler struct {
	store  HistoryStore
	logger *slog.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(store HistoryStore, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		store:  store,
		logger: logger,
	}
}

// HistoryResponse is the JSON body of GET /api/v1/history.
type HistoryResponse struct {
	Records    []domain.HistoryRecord `json:"records"`
	Count      int                    `json:"count"`
	Persistent bool                   `json:"persistent"`
}

// List handles GET /api/v1/history?limit=&video_id=&outcome=
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var filter domain.HistoryFilter

	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	if v := query.Get("video_id"); v != "" {
		id := domain.VideoID(v)
		if !domain.IsVideoID(v) {
			var err error
			if id, err = domain.ParseVideoID(v); err != nil {
				h.writeError(w, http.StatusBadRequest, "invalid video_id")
				return
			}
		}
		filter.VideoID = id
	}

	if v := query.Get("outcome"); v != "" {
		outcome := domain.Outcome(v)
		switch outcome {
		case domain.OutcomeSuccess, domain.OutcomeInvalidInput, domain.OutcomeUnavailable, domain.OutcomeError:
			filter.Outcome = &outcome
		default:
			h.writeError(w, http.StatusBadRequest, "unknown outcome")
			return
		}
	}

	records, err := h.store.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query history", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to query history")
		return
	}

	h.writeJSON(w, http.StatusOK, HistoryResponse{
		Records:    records,
		Count:      len(records),
		Persistent: h.store.Persistent(),
	})
}

func (h *HistoryHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *HistoryHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Detail: message})
}
