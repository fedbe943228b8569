package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/sbsidd17/yt-dl-api/internal/config"
)

// skipDASH keeps yt-dlp from fetching adaptive manifests, so the selected
// format is a single progressive stream.
const skipDASH = "youtube:skip=dash"

// runResult is the part of a finished yt-dlp invocation the backend reads.
type runResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

type runner func(ctx context.Context, cmd *ytdlp.Command, url string) (*runResult, error)

// YTDLP extracts through the yt-dlp executable.
type YTDLP struct {
	cfg    config.ExtractorConfig
	run    runner
	logger *slog.Logger
}

// NewYTDLP creates a yt-dlp backed extractor.
func NewYTDLP(cfg config.ExtractorConfig, logger *slog.Logger) *YTDLP {
	return &YTDLP{
		cfg:    cfg,
		run:    runCommand,
		logger: logger,
	}
}

// Name implements Extractor.
func (y *YTDLP) Name() string { return config.BackendYTDLP }

// Install downloads a managed yt-dlp binary when none is configured and
// points the extractor at it.
func (y *YTDLP) Install(ctx context.Context) error {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	if y.cfg.Executable == "" && resolved != nil {
		y.cfg.Executable = resolved.Executable
	}
	y.logger.Info("yt-dlp ready", "executable", y.executable())
	return nil
}

// Available implements Extractor.
func (y *YTDLP) Available(ctx context.Context) error {
	if _, err := exec.LookPath(y.executable()); err != nil {
		return fmt.Errorf("yt-dlp executable: %w", err)
	}
	return nil
}

func (y *YTDLP) executable() string {
	if y.cfg.Executable != "" {
		return y.cfg.Executable
	}
	return "yt-dlp"
}

// command builds the yt-dlp invocation for one request.
func (y *YTDLP) command(req Request) *ytdlp.Command {
	cmd := ytdlp.New().
		DumpSingleJSON().
		SkipDownload().
		NoPlaylist().
		Format(y.cfg.Format).
		Quiet().
		NoWarnings().
		NoProgress().
		IgnoreErrors()

	if y.cfg.Executable != "" {
		cmd = cmd.SetExecutable(y.cfg.Executable)
	}
	if y.cfg.GeoBypass {
		cmd = cmd.GeoBypass()
	}
	if !y.cfg.CheckCertificates {
		cmd = cmd.NoCheckCertificates()
	}
	if y.cfg.SleepInterval > 0 {
		cmd = cmd.SleepInterval(y.cfg.SleepInterval.Seconds())
	}
	if !y.cfg.IncludeDASH {
		cmd = cmd.ExtractorArgs(skipDASH)
	}
	if y.cfg.UserAgent != "" {
		cmd = cmd.AddHeaders("User-Agent:" + y.cfg.UserAgent)
	}
	if y.cfg.AcceptLanguage != "" {
		cmd = cmd.AddHeaders("Accept-Language:" + y.cfg.AcceptLanguage)
	}
	if req.CookieFile != "" {
		cmd = cmd.Cookies(req.CookieFile)
	}

	return cmd
}

// Extract implements Extractor.
func (y *YTDLP) Extract(ctx context.Context, req Request) (*Info, error) {
	if y.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.cfg.Timeout)
		defer cancel()
	}

	out, runErr := y.run(ctx, y.command(req), req.URL)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("yt-dlp: %w", ctxErr)
	}
	// No exit status means the process never ran to completion.
	if out == nil || (runErr != nil && out.ExitCode <= 0) {
		if runErr == nil {
			runErr = errors.New("no output")
		}
		return nil, fmt.Errorf("run yt-dlp: %w", runErr)
	}

	info, err := parseInfo(out.Stdout)
	if err != nil {
		return nil, fmt.Errorf("decode yt-dlp output: %w", err)
	}

	// yt-dlp ran and reported the video as unextractable.
	if info == nil {
		y.logger.Debug("yt-dlp returned no result",
			"url", req.URL,
			"exit_code", out.ExitCode,
			"stderr", lastLine(out.Stderr),
		)
		return nil, nil
	}

	return info, nil
}

func runCommand(ctx context.Context, cmd *ytdlp.Command, url string) (*runResult, error) {
	res, err := cmd.Run(ctx, url)
	if res == nil {
		return nil, err
	}
	return &runResult{
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
	}, err
}

// ytdlpInfo mirrors the fields of yt-dlp's info JSON the service uses.
type ytdlpInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// parseInfo decodes a --dump-single-json document. Empty output and a JSON
// null both mean no result.
func parseInfo(stdout string) (*Info, error) {
	s := strings.TrimSpace(stdout)
	if s == "" || s == "null" {
		return nil, nil
	}

	// With --ignore-errors yt-dlp may print one document per line; the last
	// one is the selected video.
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		s = strings.TrimSpace(s[i+1:])
	}

	var raw ytdlpInfo
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}

	res := raw.Resolution
	if res == "" && raw.Width > 0 && raw.Height > 0 {
		res = fmt.Sprintf("%dx%d", raw.Width, raw.Height)
	}

	return &Info{
		ID:         raw.ID,
		Title:      raw.Title,
		URL:        raw.URL,
		Ext:        raw.Ext,
		Resolution: res,
	}, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
