package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sbsidd17/yt-dl-api/internal/domain"
)

func TestHistoryHandler_List(t *testing.T) {
	store := &mockHistoryStore{
		persistent: true,
		records: []domain.HistoryRecord{
			{
				ID:        "rec-1",
				Timestamp: time.Now(),
				VideoID:   "dQw4w9WgXcQ",
				Outcome:   domain.OutcomeSuccess,
				Title:     "Test Video",
			},
		},
	}
	handler := NewHistoryHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=5&video_id=dQw4w9WgXcQ&outcome=success", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp HistoryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Records) != 1 {
		t.Errorf("count = %d, records = %d", resp.Count, len(resp.Records))
	}
	if !resp.Persistent {
		t.Error("persistent should be true")
	}

	f := store.gotFilter
	if f.Limit != 5 {
		t.Errorf("limit = %d, want 5", f.Limit)
	}
	if f.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("video_id = %q", f.VideoID)
	}
	if f.Outcome == nil || *f.Outcome != domain.OutcomeSuccess {
		t.Errorf("outcome = %v", f.Outcome)
	}
}

func TestHistoryHandler_List_VideoURL(t *testing.T) {
	store := &mockHistoryStore{}
	handler := NewHistoryHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?video_id=https%3A%2F%2Fyoutu.be%2FdQw4w9WgXcQ", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if store.gotFilter.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("video_id = %q", store.gotFilter.VideoID)
	}
}

func TestHistoryHandler_List_BadParams(t *testing.T) {
	tests := []string{
		"?limit=abc",
		"?limit=0",
		"?video_id=nope",
		"?outcome=exploded",
	}

	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			handler := NewHistoryHandler(&mockHistoryStore{}, testLogger())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/history"+query, nil)
			w := httptest.NewRecorder()

			handler.List(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if decodeDetail(t, w) == "" {
				t.Error("expected a detail message")
			}
		})
	}
}

func TestHistoryHandler_List_StoreError(t *testing.T) {
	handler := NewHistoryHandler(&mockHistoryStore{err: errors.New("database is locked")}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestHistoryHandler_List_EmptyIsArray(t *testing.T) {
	handler := NewHistoryHandler(&mockHistoryStore{records: []domain.HistoryRecord{}}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(raw["records"]) != "[]" {
		t.Errorf("records = %s, want []", raw["records"])
	}
}
