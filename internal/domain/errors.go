package domain

import "errors"

// Domain errors.
var (
	// ErrInvalidURL is returned when no video ID can be found in the input.
	ErrInvalidURL = errors.New("invalid YouTube URL")

	// ErrExtractionUnavailable is returned when the extractor ran but produced
	// no result or no usable direct media URL.
	ErrExtractionUnavailable = errors.New("video info unavailable")

	// ErrMissingURL is returned when the request carries no URL at all.
	ErrMissingURL = errors.New("missing url parameter")
)

// ExtractionError wraps an unexpected failure with video context.
type ExtractionError struct {
	VideoID VideoID
	Op      string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.VideoID != "" {
		return e.Op + " [" + e.VideoID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(videoID VideoID, op string, err error) *ExtractionError {
	return &ExtractionError{
		VideoID: videoID,
		Op:      op,
		Err:     err,
	}
}

// IsClientError reports whether err is one the caller caused or can act on.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrExtractionUnavailable) ||
		errors.Is(err, ErrMissingURL)
}
