package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sbsidd17/yt-dl-api/internal/domain"
)

// Response messages returned in the detail field.
const (
	WelcomeMessage     = "Welcome to YouTube Downloader API. Use /download?url=<YouTube_URL> to get video links."
	MsgMissingURL      = "Missing url parameter"
	MsgInvalidURL      = "Invalid YouTube URL"
	MsgUnavailable     = "Failed to retrieve video info or video unavailable"
	msgUnexpectedError = "An error occurred: "
)

// Resolver turns a video URL into a direct media link.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*domain.DownloadInfo, error)
}

// DownloadHandler serves the public resolution endpoints.
type DownloadHandler struct {
	svc    Resolver
	logger *slog.Logger
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(svc Resolver, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		svc:    svc,
		logger: logger,
	}
}

// WelcomeResponse is the JSON body of GET /.
type WelcomeResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Home handles GET /
func (h *DownloadHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, WelcomeResponse{Message: WelcomeMessage})
}

// Download handles GET /download?url=
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("url") {
		h.writeFailure(w, domain.ErrMissingURL)
		return
	}

	info, err := h.svc.Resolve(r.Context(), query.Get("url"))
	if err != nil {
		// The timeout middleware answers for requests whose deadline passed.
		if r.Context().Err() != nil {
			h.logger.Warn("download request ended before resolution",
				"url", query.Get("url"),
				"error", r.Context().Err(),
			)
			return
		}
		h.writeFailure(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, info)
}

// writeFailure maps a resolution error to its status code and message.
func (h *DownloadHandler) writeFailure(w http.ResponseWriter, err error) {
	status, detail := Failure(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("download failed", "error", err)
	}
	h.writeError(w, status, detail)
}

// Failure returns the status code and detail message reported for a
// resolution error. Unexpected errors carry the extractor's cause, not the
// wrapper text.
func Failure(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMissingURL):
		return http.StatusBadRequest, MsgMissingURL
	case errors.Is(err, domain.ErrInvalidURL):
		return http.StatusBadRequest, MsgInvalidURL
	case errors.Is(err, domain.ErrExtractionUnavailable):
		return http.StatusBadRequest, MsgUnavailable
	default:
		cause := err
		var extErr *domain.ExtractionError
		if errors.As(err, &extErr) && extErr.Err != nil {
			cause = extErr.Err
		}
		return http.StatusInternalServerError, msgUnexpectedError + cause.Error()
	}
}

func (h *DownloadHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *DownloadHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Detail: message})
}
