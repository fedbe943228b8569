package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/sbsidd17/yt-dl-api/internal/config"
	"github.com/sbsidd17/yt-dl-api/internal/cookies"
)

// videoClient is the subset of *youtube.Client the native backend uses.
type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamURLContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (string, error)
}

// Native extracts in process with github.com/kkdai/youtube.
type Native struct {
	cfg       config.ExtractorConfig
	newClient func(httpClient *http.Client) videoClient
	logger    *slog.Logger
}

// NewNative creates an in-process extractor.
func NewNative(cfg config.ExtractorConfig, logger *slog.Logger) *Native {
	return &Native{
		cfg: cfg,
		newClient: func(httpClient *http.Client) videoClient {
			return &youtube.Client{HTTPClient: httpClient}
		},
		logger: logger,
	}
}

// Name implements Extractor.
func (n *Native) Name() string { return config.BackendNative }

// Available implements Extractor.
func (n *Native) Available(ctx context.Context) error { return nil }

// Extract implements Extractor.
func (n *Native) Extract(ctx context.Context, req Request) (*Info, error) {
	client := n.newClient(n.httpClient(req.CookieFile))

	video, err := client.GetVideoContext(ctx, req.URL)
	if err != nil {
		if isUnplayable(err) {
			n.logger.Debug("video not playable", "url", req.URL, "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("get video: %w", err)
	}

	format := pickFormat(video.Formats)
	if format == nil {
		return nil, nil
	}

	streamURL, err := client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		if isUnplayable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve stream url: %w", err)
	}

	return &Info{
		ID:         video.ID,
		Title:      video.Title,
		URL:        streamURL,
		Ext:        extFromMime(format.MimeType),
		Resolution: formatResolution(format),
	}, nil
}

func (n *Native) httpClient(cookieFile string) *http.Client {
	hc := &http.Client{
		Timeout: n.cfg.Timeout,
		Transport: &headerTransport{
			base:           http.DefaultTransport,
			userAgent:      n.cfg.UserAgent,
			acceptLanguage: n.cfg.AcceptLanguage,
		},
	}
	if cookieFile != "" {
		jar, err := cookies.LoadJar(cookieFile)
		if err != nil {
			n.logger.Warn("failed to load cookie jar, continuing without cookies", "error", err)
		} else {
			hc.Jar = jar
		}
	}
	return hc
}

func isUnplayable(err error) bool {
	var statusErr *youtube.ErrPlayabiltyStatus
	return errors.Is(err, youtube.ErrVideoPrivate) ||
		errors.Is(err, youtube.ErrLoginRequired) ||
		errors.Is(err, youtube.ErrNotPlayableInEmbed) ||
		errors.As(err, &statusErr)
}

// pickFormat mirrors "best[ext=mp4]/best": the highest progressive
// (audio and video) mp4 stream, else the highest progressive stream.
func pickFormat(formats youtube.FormatList) *youtube.Format {
	var best, bestMP4 *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || f.Height == 0 {
			continue
		}
		if best == nil || f.Height > best.Height {
			best = f
		}
		if extFromMime(f.MimeType) == "mp4" && (bestMP4 == nil || f.Height > bestMP4.Height) {
			bestMP4 = f
		}
	}
	if bestMP4 != nil {
		return bestMP4
	}
	return best
}

// extFromMime maps "video/mp4; codecs=..." to "mp4".
func extFromMime(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	_, sub, ok := strings.Cut(strings.TrimSpace(mime), "/")
	if !ok {
		return ""
	}
	switch sub {
	case "3gpp":
		return "3gp"
	default:
		return sub
	}
}

func formatResolution(f *youtube.Format) string {
	if f.Width > 0 && f.Height > 0 {
		return fmt.Sprintf("%dx%d", f.Width, f.Height)
	}
	return f.QualityLabel
}

// headerTransport adds the configured language preference to every request
// and a User-Agent where the client did not set its own.
type headerTransport struct {
	base           http.RoundTripper
	userAgent      string
	acceptLanguage string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if t.acceptLanguage != "" {
		req.Header.Set("Accept-Language", t.acceptLanguage)
	}
	return t.base.RoundTrip(req)
}
