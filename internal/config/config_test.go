package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() should validate, got %v", err)
	}

	if cfg.Extractor.Format != "best[ext=mp4]/best" {
		t.Errorf("Format = %q", cfg.Extractor.Format)
	}
	if cfg.Extractor.SleepInterval != time.Second {
		t.Errorf("SleepInterval = %v, want 1s", cfg.Extractor.SleepInterval)
	}
	if !cfg.Extractor.GeoBypass || cfg.Extractor.CheckCertificates || cfg.Extractor.IncludeDASH {
		t.Error("default extractor flags should bypass geo, skip cert checks and skip DASH")
	}
	if cfg.Extractor.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d, want 4", cfg.Extractor.MaxConcurrent)
	}
	if cfg.Cookies.RemoteTimeout != 5*time.Second {
		t.Errorf("RemoteTimeout = %v, want 5s", cfg.Cookies.RemoteTimeout)
	}
	if cfg.Cookies.Source != CookieSourceNone {
		t.Errorf("Source = %q, want none", cfg.Cookies.Source)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"native backend", func(c *Config) { c.Extractor.Backend = BackendNative }, false},
		{"unknown backend", func(c *Config) { c.Extractor.Backend = "youtube-dl" }, true},
		{"empty format", func(c *Config) { c.Extractor.Format = "" }, true},
		{"negative sleep", func(c *Config) { c.Extractor.SleepInterval = -time.Second }, true},
		{"negative max concurrent", func(c *Config) { c.Extractor.MaxConcurrent = -1 }, true},
		{"unlimited concurrency", func(c *Config) { c.Extractor.MaxConcurrent = 0 }, false},
		{"file source", func(c *Config) { c.Cookies.Source = CookieSourceFile }, false},
		{"file source without path", func(c *Config) {
			c.Cookies.Source = CookieSourceFile
			c.Cookies.Path = ""
		}, true},
		{"embedded source", func(c *Config) {
			c.Cookies.Source = CookieSourceEmbedded
			c.Cookies.Data = ".youtube.com\tTRUE\t/\tTRUE\t0\tPREF\tf1=1"
		}, false},
		{"embedded source without data", func(c *Config) {
			c.Cookies.Source = CookieSourceEmbedded
			c.Cookies.Data = "  \n"
		}, true},
		{"remote https", func(c *Config) {
			c.Cookies.Source = CookieSourceRemote
			c.Cookies.RemoteURL = "https://secrets.internal/cookies.txt"
		}, false},
		{"remote http rejected", func(c *Config) {
			c.Cookies.Source = CookieSourceRemote
			c.Cookies.RemoteURL = "http://secrets.internal/cookies.txt"
		}, true},
		{"remote http allowed", func(c *Config) {
			c.Cookies.Source = CookieSourceRemote
			c.Cookies.RemoteURL = "http://secrets.internal/cookies.txt"
			c.Cookies.AllowInsecureRemote = true
		}, false},
		{"remote without url", func(c *Config) { c.Cookies.Source = CookieSourceRemote }, true},
		{"remote zero timeout", func(c *Config) {
			c.Cookies.Source = CookieSourceRemote
			c.Cookies.RemoteURL = "https://secrets.internal/cookies.txt"
			c.Cookies.RemoteTimeout = 0
		}, true},
		{"unknown cookie source", func(c *Config) { c.Cookies.Source = "browser" }, true},
		{"rate limit without burst", func(c *Config) {
			c.RateLimit.RPS = 2
			c.RateLimit.Burst = 0
		}, true},
		{"negative rate", func(c *Config) { c.RateLimit.RPS = -1 }, true},
		{"negative history size", func(c *Config) { c.History.Size = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{
			name: "default",
			cfg:  ServerConfig{Host: "0.0.0.0", Port: 8000},
			want: "0.0.0.0:8000",
		},
		{
			name: "localhost",
			cfg:  ServerConfig{Host: "localhost", Port: 8080},
			want: "localhost:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Address(); got != tt.want {
				t.Errorf("Address() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  port: 9000
  api_key: "yaml-api-key"
extractor:
  backend: native
  sleep_interval: 2s
cookies:
  source: file
  path: /etc/yt/cookies.txt
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.APIKey != "yaml-api-key" {
		t.Errorf("APIKey = %q, want %q", cfg.Server.APIKey, "yaml-api-key")
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host should keep its default, got %q", cfg.Server.Host)
	}
	if cfg.Extractor.Backend != BackendNative {
		t.Errorf("Backend = %q, want native", cfg.Extractor.Backend)
	}
	if cfg.Extractor.SleepInterval != 2*time.Second {
		t.Errorf("SleepInterval = %v, want 2s", cfg.Extractor.SleepInterval)
	}
	if cfg.Cookies.Path != "/etc/yt/cookies.txt" {
		t.Errorf("Cookies.Path = %q", cfg.Cookies.Path)
	}
}

func TestLoad_FromTOMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	tomlContent := `
[server]
port = 7000

[rate_limit]
rps = 2.5
burst = 10

[history]
size = 50
`
	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.RateLimit.RPS != 2.5 || cfg.RateLimit.Burst != 10 {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.History.Size != 50 {
		t.Errorf("History.Size = %d, want 50", cfg.History.Size)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  port: 8080
  api_key: "yaml-api-key"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("API_KEY", "env-api-key")
	t.Setenv("EXTRACTOR_SLEEP_INTERVAL", "500ms")
	t.Setenv("SERVER_TRUST_PROXY", "true")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.APIKey != "env-api-key" {
		t.Errorf("APIKey should be from env, got %q", cfg.Server.APIKey)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port should stay from file, got %d", cfg.Server.Port)
	}
	if cfg.Extractor.SleepInterval != 500*time.Millisecond {
		t.Errorf("SleepInterval = %v, want 500ms", cfg.Extractor.SleepInterval)
	}
	if !cfg.Server.TrustProxy {
		t.Error("TrustProxy should be enabled from env")
	}
}

func TestLoad_CookieDataFile(t *testing.T) {
	tmpDir := t.TempDir()
	dataPath := filepath.Join(tmpDir, "cookies.txt")
	jar := "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tPREF\tf1=1\n"
	if err := os.WriteFile(dataPath, []byte(jar), 0600); err != nil {
		t.Fatalf("failed to write cookie file: %v", err)
	}

	t.Setenv("COOKIE_SOURCE", CookieSourceEmbedded)
	t.Setenv("COOKIES_DATA_FILE", dataPath)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cookies.Data != jar {
		t.Errorf("Cookies.Data = %q, want file contents", cfg.Cookies.Data)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
server:
  host: "localhost
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load should fail for invalid YAML")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load should fail for nonexistent file")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("COOKIE_SOURCE", CookieSourceRemote)
	t.Setenv("COOKIE_REMOTE_URL", "")

	_, err := Load("")
	if err == nil {
		t.Error("Load should fail validation for remote source without URL")
	}
}
