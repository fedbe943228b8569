package domain

import (
	"errors"
	"time"
)

// RecordID is a unique identifier for a history record.
type RecordID string

// String returns the string representation of the RecordID.
func (id RecordID) String() string {
	return string(id)
}

// Outcome classifies how a resolution ended.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeInvalidInput Outcome = "invalid_input"
	OutcomeUnavailable  Outcome = "unavailable"
	OutcomeError        Outcome = "error"
)

// OutcomeOf maps a resolution error to its outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrInvalidURL), errors.Is(err, ErrMissingURL):
		return OutcomeInvalidInput
	case errors.Is(err, ErrExtractionUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}

// HistoryRecord describes one resolution attempt. Download URLs are signed
// and short-lived, so they are never part of a record.
type HistoryRecord struct {
	ID         RecordID      `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	VideoID    VideoID       `json:"video_id,omitempty"`
	Outcome    Outcome       `json:"outcome"`
	Title      string        `json:"title,omitempty"`
	Format     string        `json:"format,omitempty"`
	Resolution string        `json:"resolution,omitempty"`
	Message    string        `json:"message,omitempty"`
	Cookies    string        `json:"cookies,omitempty"` // cookie source kind that was staged, if any
	Duration   time.Duration `json:"duration_ns"`
}

// HistoryFilter narrows a history query.
type HistoryFilter struct {
	VideoID VideoID
	Outcome *Outcome
	Limit   int
}
