package cookies

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sbsidd17/yt-dl-api/internal/config"
)

// LocalFile serves the cookie jar kept at a fixed path.
//
// yt-dlp writes its cookie jar back on exit, so each call gets a private
// copy and the shared file is only ever read.
type LocalFile struct {
	path    string
	tempDir string
}

// NewLocalFile creates a source for the jar at path.
func NewLocalFile(path, tempDir string) *LocalFile {
	return &LocalFile{path: path, tempDir: tempDir}
}

// Kind implements Source.
func (l *LocalFile) Kind() string { return config.CookieSourceFile }

// Stage implements Source.
func (l *LocalFile) Stage(ctx context.Context) (*Jar, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open cookie file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxJarSize+1))
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	if len(data) > maxJarSize {
		return nil, fmt.Errorf("cookie file exceeds %d bytes", maxJarSize)
	}

	return stageTemp(l.tempDir, l.Kind(), data)
}
