// Package cookies stages browser-session cookie jars for a single extraction.
//
// A Source produces a Jar on every call. Jars backed by temporary files are
// removed when released; Use guarantees the release on every exit path.
package cookies

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sbsidd17/yt-dl-api/internal/config"
)

// maxJarSize bounds how much cookie data is staged from any source.
const maxJarSize = 1 << 20

// ErrEmptyJar is returned when cookie data holds no parseable cookies.
var ErrEmptyJar = errors.New("cookie jar contains no cookies")

// Source provides a cookie jar for one extraction call.
type Source interface {
	// Kind names the source variant for logs and history.
	Kind() string

	// Stage returns a jar ready to hand to the extractor. The caller must
	// Release it once the extraction returns.
	Stage(ctx context.Context) (*Jar, error)
}

// Jar is a cookie jar staged on the filesystem.
type Jar struct {
	// Path is the Netscape-format jar file, or "" for no cookies.
	Path string
	// Kind is the source that produced the jar.
	Kind string

	cleanup func() error
}

// Release removes any temporary file behind the jar. It is safe to call
// more than once and on a nil or empty jar.
func (j *Jar) Release() error {
	if j == nil || j.cleanup == nil {
		return nil
	}
	fn := j.cleanup
	j.cleanup = nil
	return fn()
}

// Empty reports whether the jar carries no cookies.
func (j *Jar) Empty() bool {
	return j == nil || j.Path == ""
}

// Use stages a jar from src, runs fn with it and releases the jar when fn
// returns or panics. A staging failure is logged and fn runs with an empty
// jar: missing cookies degrade the extraction, they never fail it.
func Use(ctx context.Context, src Source, logger *slog.Logger, fn func(jar *Jar) error) error {
	jar, err := src.Stage(ctx)
	if err != nil {
		logger.Warn("cookie staging failed, continuing without cookies",
			"source", src.Kind(),
			"error", err,
		)
		jar = &Jar{}
	}
	defer func() {
		if err := jar.Release(); err != nil {
			logger.Warn("failed to remove staged cookie jar", "path", jar.Path, "error", err)
		}
	}()

	return fn(jar)
}

// New builds the source selected by configuration.
func New(cfg config.CookieConfig, userAgent string) (Source, error) {
	switch cfg.Source {
	case "", config.CookieSourceNone:
		return None{}, nil
	case config.CookieSourceFile:
		return NewLocalFile(cfg.Path, cfg.TempDir), nil
	case config.CookieSourceEmbedded:
		return NewEmbedded([]byte(cfg.Data), cfg.TempDir)
	case config.CookieSourceRemote:
		return NewRemote(RemoteConfig{
			URL:       cfg.RemoteURL,
			Token:     cfg.RemoteToken,
			Timeout:   cfg.RemoteTimeout,
			TempDir:   cfg.TempDir,
			UserAgent: userAgent,
		}), nil
	default:
		return nil, fmt.Errorf("unknown cookie source %q", cfg.Source)
	}
}

// None never provides cookies.
type None struct{}

// Kind implements Source.
func (None) Kind() string { return config.CookieSourceNone }

// Stage implements Source.
func (None) Stage(context.Context) (*Jar, error) { return &Jar{}, nil }

// stageTemp writes data to a fresh temporary file owned by the returned jar.
func stageTemp(dir, kind string, data []byte) (*Jar, error) {
	f, err := os.CreateTemp(dir, "cookies-*.txt")
	if err != nil {
		return nil, fmt.Errorf("create temp jar: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write temp jar: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close temp jar: %w", err)
	}

	return &Jar{
		Path: path,
		Kind: kind,
		cleanup: func() error {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			return nil
		},
	}, nil
}
