package cookies

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sbsidd17/yt-dl-api/internal/config"
)

// Embedded serves a cookie jar held in process memory, loaded from
// configuration at startup.
type Embedded struct {
	data    []byte
	tempDir string
}

// NewEmbedded validates data once and keeps it for every call.
func NewEmbedded(data []byte, tempDir string) (*Embedded, error) {
	if len(data) > maxJarSize {
		return nil, fmt.Errorf("embedded cookie data exceeds %d bytes", maxJarSize)
	}
	cookies, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse embedded cookies: %w", err)
	}
	if len(cookies) == 0 {
		return nil, ErrEmptyJar
	}
	return &Embedded{data: data, tempDir: tempDir}, nil
}

// Kind implements Source.
func (e *Embedded) Kind() string { return config.CookieSourceEmbedded }

// Stage implements Source.
func (e *Embedded) Stage(ctx context.Context) (*Jar, error) {
	return stageTemp(e.tempDir, e.Kind(), e.data)
}
