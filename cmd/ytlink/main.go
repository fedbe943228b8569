// Command ytlink resolves a YouTube URL to a direct media link from the
// terminal, using the same configuration as the server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sbsidd17/yt-dl-api/internal/api/handler"
	"github.com/sbsidd17/yt-dl-api/internal/config"
	"github.com/sbsidd17/yt-dl-api/internal/cookies"
	"github.com/sbsidd17/yt-dl-api/internal/extractor"
	"github.com/sbsidd17/yt-dl-api/internal/service"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig  string
	flagBackend string
	flagCookies string
	flagDebug   bool
)

// cfg holds the loaded configuration (defaults < config file < env < flags).
var cfg *config.Config

var logger *slog.Logger

var rootCmd = &cobra.Command{
	Use:               "ytlink",
	Short:             "Resolve YouTube URLs to direct media links",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Print title, download_url, format and resolution as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  resolveRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	// No config needed to print the version.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ytlink %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (YAML or TOML)")
	rootCmd.PersistentFlags().StringVarP(&flagBackend, "backend", "b", "", "Extractor backend: ytdlp | native")
	rootCmd.PersistentFlags().StringVarP(&flagCookies, "cookies", "c", "", "Netscape cookie jar to use")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and applies CLI flag overrides.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if flagBackend != "" {
		cfg.Extractor.Backend = flagBackend
	}
	if flagCookies != "" {
		cfg.Cookies.Source = config.CookieSourceFile
		cfg.Cookies.Path = flagCookies
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := slog.LevelWarn
	if flagDebug {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func resolveRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ex, err := extractor.New(cfg.Extractor, logger)
	if err != nil {
		return err
	}
	if y, ok := ex.(*extractor.YTDLP); ok && cfg.Extractor.AutoInstall {
		if err := y.Install(ctx); err != nil {
			return err
		}
	}

	src, err := cookies.New(cfg.Cookies, cfg.Extractor.UserAgent)
	if err != nil {
		return err
	}

	svc := service.NewExtractService(ex, src, nil, cfg.Extractor.MaxConcurrent, logger)
	info, err := svc.Resolve(ctx, args[0])
	if err != nil {
		return errors.New(detailFor(err))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

// detailFor renders an error the way the HTTP API reports it.
func detailFor(err error) string {
	_, detail := handler.Failure(err)
	return detail
}
