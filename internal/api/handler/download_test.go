package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sbsidd17/yt-dl-api/internal/domain"
)

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.Detail
}

func TestDownloadHandler_Home(t *testing.T) {
	handler := NewDownloadHandler(&mockResolver{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handler.Home(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp WelcomeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	want := "Welcome to YouTube Downloader API. Use /download?url=<YouTube_URL> to get video links."
	if resp.Message != want {
		t.Errorf("message = %q, want %q", resp.Message, want)
	}
}

func TestDownloadHandler_Download_Success(t *testing.T) {
	svc := &mockResolver{info: &domain.DownloadInfo{
		Title:       "Test Video",
		DownloadURL: "https://cdn.example/v.mp4",
		Format:      "mp4",
		Resolution:  "1280x720",
	}}
	handler := NewDownloadHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/download?url=https%3A%2F%2Fyoutu.be%2FdQw4w9WgXcQ", nil)
	w := httptest.NewRecorder()

	handler.Download(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if svc.gotURL != "https://youtu.be/dQw4w9WgXcQ" {
		t.Errorf("resolver got %q", svc.gotURL)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	want := map[string]string{
		"title":        "Test Video",
		"download_url": "https://cdn.example/v.mp4",
		"format":       "mp4",
		"resolution":   "1280x720",
	}
	if len(body) != len(want) {
		t.Errorf("body has %d fields, want %d: %v", len(body), len(want), body)
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s = %q, want %q", k, body[k], v)
		}
	}
}

func TestDownloadHandler_Download_MissingURL(t *testing.T) {
	svc := &mockResolver{}
	handler := NewDownloadHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	w := httptest.NewRecorder()

	handler.Download(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if got := decodeDetail(t, w); got != "Missing url parameter" {
		t.Errorf("detail = %q", got)
	}
	if svc.calls != 0 {
		t.Error("resolver should not be called without a url")
	}
}

func TestDownloadHandler_Download_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "invalid url",
			err:        domain.ErrInvalidURL,
			wantStatus: http.StatusBadRequest,
			wantDetail: "Invalid YouTube URL",
		},
		{
			name:       "unavailable",
			err:        domain.ErrExtractionUnavailable,
			wantStatus: http.StatusBadRequest,
			wantDetail: "Failed to retrieve video info or video unavailable",
		},
		{
			name:       "extraction error",
			err:        domain.NewExtractionError("dQw4w9WgXcQ", "extract", errors.New("yt-dlp crashed")),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "An error occurred: yt-dlp crashed",
		},
		{
			name:       "bare error",
			err:        errors.New("disk full"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "An error occurred: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewDownloadHandler(&mockResolver{err: tt.err}, testLogger())

			req := httptest.NewRequest(http.MethodGet, "/download?url=x", nil)
			w := httptest.NewRecorder()

			handler.Download(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			if got := decodeDetail(t, w); got != tt.wantDetail {
				t.Errorf("detail = %q, want %q", got, tt.wantDetail)
			}
		})
	}
}

func TestDownloadHandler_Download_EmptyURL(t *testing.T) {
	svc := &mockResolver{err: domain.ErrInvalidURL}
	handler := NewDownloadHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/download?url=", nil)
	w := httptest.NewRecorder()

	handler.Download(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if got := decodeDetail(t, w); got != "Invalid YouTube URL" {
		t.Errorf("detail = %q", got)
	}
}

func TestDownloadHandler_Download_ContextDone(t *testing.T) {
	svc := &mockResolver{err: domain.NewExtractionError("dQw4w9WgXcQ", "resolve", context.Canceled)}
	handler := NewDownloadHandler(svc, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/download?url=x", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	handler.Download(w, req)

	if w.Body.Len() != 0 {
		t.Errorf("expected no body for an abandoned request, got %q", w.Body.String())
	}
}
