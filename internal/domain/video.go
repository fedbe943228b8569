package domain

import (
	"net/url"
	"regexp"
)

// CanonicalWatchURL is the single URL shape handed to extractors.
const CanonicalWatchURL = "https://www.youtube.com/watch?v="

// Fallbacks used when the extractor leaves a display field empty.
const (
	DefaultTitle      = "Unknown"
	DefaultFormat     = "mp4"
	DefaultResolution = "Unknown"
)

// videoIDPattern matches an 11 character video ID following "v=" or a path separator.
var videoIDPattern = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`)

var bareIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)

// VideoID is a YouTube video identifier.
type VideoID string

// String returns the string representation of the VideoID.
func (id VideoID) String() string {
	return string(id)
}

// WatchURL returns the canonical watch page URL for the video.
func (id VideoID) WatchURL() string {
	return CanonicalWatchURL + string(id)
}

// ParseVideoID finds the video ID in a watch, shorts, embed or youtu.be URL.
// The first match wins; anything around it is discarded.
func ParseVideoID(raw string) (VideoID, error) {
	m := videoIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", ErrInvalidURL
	}
	return VideoID(m[1]), nil
}

// IsVideoID reports whether s is a bare video ID.
func IsVideoID(s string) bool {
	return bareIDPattern.MatchString(s)
}

// DownloadInfo is the resolved direct link and its display metadata.
type DownloadInfo struct {
	Title       string `json:"title"`
	DownloadURL string `json:"download_url"`
	Format      string `json:"format"`
	Resolution  string `json:"resolution"`
}

// IsDownloadableURL reports whether s is an absolute http(s) URL.
func IsDownloadableURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
