// Package extractor resolves a canonical watch URL into a direct media URL
// and display metadata.
package extractor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sbsidd17/yt-dl-api/internal/config"
)

// Request is a single extraction call.
type Request struct {
	// URL is the canonical watch page URL.
	URL string
	// CookieFile is a Netscape jar path, or "" for no cookies.
	CookieFile string
}

// Info is the extractor output the service maps into a response. Fields the
// extractor did not supply are empty.
type Info struct {
	ID         string
	Title      string
	URL        string
	Ext        string
	Resolution string
}

// Extractor resolves watch URLs.
//
// Extract returns (nil, nil) when the extractor ran but produced no result,
// and an error only for failures of the extraction machinery itself.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, req Request) (*Info, error)
	// Available reports whether the backend can serve requests.
	Available(ctx context.Context) error
}

// New builds the backend selected by configuration.
func New(cfg config.ExtractorConfig, logger *slog.Logger) (Extractor, error) {
	switch cfg.Backend {
	case "", config.BackendYTDLP:
		return NewYTDLP(cfg, logger), nil
	case config.BackendNative:
		return NewNative(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", cfg.Backend)
	}
}
