package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Extractor backends.
const (
	BackendYTDLP  = "ytdlp"
	BackendNative = "native"
)

// Cookie sources.
const (
	CookieSourceNone     = "none"
	CookieSourceFile     = "file"
	CookieSourceEmbedded = "embedded"
	CookieSourceRemote   = "remote"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Extractor ExtractorConfig `yaml:"extractor" toml:"extractor"`
	Cookies   CookieConfig    `yaml:"cookies" toml:"cookies"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	History   HistoryConfig   `yaml:"history" toml:"history"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string        `yaml:"host" toml:"host" envconfig:"SERVER_HOST"`
	Port           int           `yaml:"port" toml:"port" envconfig:"SERVER_PORT"`
	APIKey         string        `yaml:"api_key" toml:"api_key" envconfig:"API_KEY"`
	ReadTimeout    time.Duration `yaml:"read_timeout" toml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" toml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	RequestTimeout time.Duration `yaml:"request_timeout" toml:"request_timeout" envconfig:"SERVER_REQUEST_TIMEOUT"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy     bool          `yaml:"trust_proxy" toml:"trust_proxy" envconfig:"SERVER_TRUST_PROXY"`
}

// ExtractorConfig holds the option bundle handed to the extraction backend.
type ExtractorConfig struct {
	Backend           string        `yaml:"backend" toml:"backend" envconfig:"EXTRACTOR_BACKEND"`
	Executable        string        `yaml:"executable" toml:"executable" envconfig:"YTDLP_PATH"`
	AutoInstall       bool          `yaml:"auto_install" toml:"auto_install" envconfig:"YTDLP_AUTO_INSTALL"`
	Format            string        `yaml:"format" toml:"format" envconfig:"EXTRACTOR_FORMAT"`
	UserAgent         string        `yaml:"user_agent" toml:"user_agent" envconfig:"EXTRACTOR_USER_AGENT"`
	AcceptLanguage    string        `yaml:"accept_language" toml:"accept_language" envconfig:"EXTRACTOR_ACCEPT_LANGUAGE"`
	SleepInterval     time.Duration `yaml:"sleep_interval" toml:"sleep_interval" envconfig:"EXTRACTOR_SLEEP_INTERVAL"`
	GeoBypass         bool          `yaml:"geo_bypass" toml:"geo_bypass" envconfig:"EXTRACTOR_GEO_BYPASS"`
	CheckCertificates bool          `yaml:"check_certificates" toml:"check_certificates" envconfig:"EXTRACTOR_CHECK_CERTIFICATES"`
	IncludeDASH       bool          `yaml:"include_dash" toml:"include_dash" envconfig:"EXTRACTOR_INCLUDE_DASH"`
	Timeout           time.Duration `yaml:"timeout" toml:"timeout" envconfig:"EXTRACTOR_TIMEOUT"`

	// MaxConcurrent caps simultaneous extractions; 0 means unlimited.
	MaxConcurrent int `yaml:"max_concurrent" toml:"max_concurrent" envconfig:"EXTRACTOR_MAX_CONCURRENT"`
}

// CookieConfig selects where the cookie jar for extraction comes from.
type CookieConfig struct {
	Source string `yaml:"source" toml:"source" envconfig:"COOKIE_SOURCE"`

	// Path is the cookie jar used by the "file" source.
	Path string `yaml:"path" toml:"path" envconfig:"COOKIE_PATH"`

	// Data holds the jar text for the "embedded" source. DataFile is read
	// into Data once at load time so secrets can come from a mounted file.
	Data     string `yaml:"data" toml:"data" envconfig:"COOKIES_DATA"`
	DataFile string `yaml:"data_file" toml:"data_file" envconfig:"COOKIES_DATA_FILE"`

	RemoteURL           string        `yaml:"remote_url" toml:"remote_url" envconfig:"COOKIE_REMOTE_URL"`
	RemoteToken         string        `yaml:"remote_token" toml:"remote_token" envconfig:"COOKIE_REMOTE_TOKEN"`
	RemoteTimeout       time.Duration `yaml:"remote_timeout" toml:"remote_timeout" envconfig:"COOKIE_REMOTE_TIMEOUT"`
	AllowInsecureRemote bool          `yaml:"allow_insecure_remote" toml:"allow_insecure_remote" envconfig:"COOKIE_ALLOW_INSECURE_REMOTE"`

	// TempDir is where staged jars are written; empty means os.TempDir().
	TempDir string `yaml:"temp_dir" toml:"temp_dir" envconfig:"COOKIE_TEMP_DIR"`
}

// RateLimitConfig holds the /download request limiter settings.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" toml:"rps" envconfig:"RATE_LIMIT_RPS"`
	Burst int     `yaml:"burst" toml:"burst" envconfig:"RATE_LIMIT_BURST"`
}

// HistoryConfig holds resolution history configuration.
type HistoryConfig struct {
	Size          int    `yaml:"size" toml:"size" envconfig:"HISTORY_SIZE"`
	SQLitePath    string `yaml:"sqlite_path" toml:"sqlite_path" envconfig:"HISTORY_DB_PATH"`
	RetentionDays int    `yaml:"retention_days" toml:"retention_days" envconfig:"HISTORY_RETENTION_DAYS"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   2 * time.Minute,
			RequestTimeout: 90 * time.Second,
		},
		Extractor: ExtractorConfig{
			Backend:        BackendYTDLP,
			Format:         "best[ext=mp4]/best",
			UserAgent:      "Mozilla/5.0 (Linux; Android 10; SM-G975F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.77 Mobile Safari/537.36",
			AcceptLanguage: "en-US,en;q=0.5",
			SleepInterval:  time.Second,
			GeoBypass:      true,
			Timeout:        60 * time.Second,
			MaxConcurrent:  4,
		},
		Cookies: CookieConfig{
			Source:        CookieSourceNone,
			Path:          "api/cookies.txt",
			RemoteTimeout: 5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Burst: 5,
		},
		History: HistoryConfig{
			Size:          200,
			RetentionDays: 30,
		},
	}
}

// Load reads configuration from file and environment variables.
// Precedence is defaults, then the file (YAML, or TOML for *.toml), then
// environment variables.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := decodeFile(configPath, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Only variables that are set override; there are no default tags.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if cfg.Cookies.DataFile != "" {
		data, err := os.ReadFile(cfg.Cookies.DataFile)
		if err != nil {
			return nil, fmt.Errorf("read cookie data file: %w", err)
		}
		cfg.Cookies.Data = string(data)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func decodeFile(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

// Validate checks that configuration values are consistent.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port)
	}

	switch c.Extractor.Backend {
	case BackendYTDLP, BackendNative:
	default:
		return fmt.Errorf("EXTRACTOR_BACKEND %q is not one of %s, %s", c.Extractor.Backend, BackendYTDLP, BackendNative)
	}
	if c.Extractor.Format == "" {
		return fmt.Errorf("EXTRACTOR_FORMAT is required")
	}
	if c.Extractor.SleepInterval < 0 {
		return fmt.Errorf("EXTRACTOR_SLEEP_INTERVAL must not be negative")
	}
	if c.Extractor.MaxConcurrent < 0 {
		return fmt.Errorf("EXTRACTOR_MAX_CONCURRENT must not be negative")
	}

	if err := c.Cookies.validate(); err != nil {
		return err
	}

	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	if c.History.Size < 0 {
		return fmt.Errorf("HISTORY_SIZE must not be negative")
	}
	return nil
}

func (c *CookieConfig) validate() error {
	switch c.Source {
	case CookieSourceNone:
	case CookieSourceFile:
		if c.Path == "" {
			return fmt.Errorf("COOKIE_PATH is required for cookie source %q", c.Source)
		}
	case CookieSourceEmbedded:
		if strings.TrimSpace(c.Data) == "" {
			return fmt.Errorf("COOKIES_DATA or COOKIES_DATA_FILE is required for cookie source %q", c.Source)
		}
	case CookieSourceRemote:
		u, err := url.Parse(c.RemoteURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("COOKIE_REMOTE_URL %q is not a valid URL", c.RemoteURL)
		}
		if u.Scheme != "https" && !(u.Scheme == "http" && c.AllowInsecureRemote) {
			return fmt.Errorf("COOKIE_REMOTE_URL must use https")
		}
		if c.RemoteTimeout <= 0 {
			return fmt.Errorf("COOKIE_REMOTE_TIMEOUT must be positive")
		}
	default:
		return fmt.Errorf("COOKIE_SOURCE %q is not one of none, file, embedded, remote", c.Source)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
