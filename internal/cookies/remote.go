package cookies

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sbsidd17/yt-dl-api/internal/config"
)

// Remote fetch failures.
var (
	ErrRemoteUnauthorized = errors.New("cookie endpoint rejected credentials")
	ErrRemoteTooLarge     = errors.New("cookie endpoint response too large")
)

// RemoteConfig configures a Remote source.
type RemoteConfig struct {
	URL       string
	Token     string
	Timeout   time.Duration
	TempDir   string
	UserAgent string
	Retry     RetryConfig
}

// Remote fetches the cookie jar over HTTP on every call.
type Remote struct {
	client    *http.Client
	timeout   time.Duration
	retry     RetryConfig
	url       string
	token     string
	tempDir   string
	userAgent string
}

// NewRemote creates a remote cookie source. The timeout bounds the whole
// fetch, retries included, so a slow endpoint cannot stall a request.
func NewRemote(cfg RemoteConfig) *Remote {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Remote{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout:   timeout,
		retry:     retry,
		url:       cfg.URL,
		token:     cfg.Token,
		tempDir:   cfg.TempDir,
		userAgent: cfg.UserAgent,
	}
}

// Kind implements Source.
func (r *Remote) Kind() string { return config.CookieSourceRemote }

// Stage implements Source.
func (r *Remote) Stage(ctx context.Context) (*Jar, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := retryWithCheck(ctx, r.retry, func() ([]byte, error) {
		return r.fetch(ctx)
	}, isTransient)
	if err != nil {
		return nil, err
	}
	return stageTemp(r.tempDir, r.Kind(), data)
}

func (r *Remote) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "text/plain")
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrRemoteUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJarSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxJarSize {
		return nil, ErrRemoteTooLarge
	}

	cookies, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse remote cookies: %w", err)
	}
	if len(cookies) == 0 {
		return nil, ErrEmptyJar
	}
	return data, nil
}
