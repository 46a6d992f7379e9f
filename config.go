package pocketlint

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a pocketlintd server.
type Config struct {
	Addr         string `yaml:"addr"`          // listen address (default ":3000")
	DatabasePath string `yaml:"database_path"` // SQLite path (default "data/pocketlint.db")
	BlobDir      string `yaml:"blob_dir"`      // blob store root (default "data/blobs")

	SessionSecret string `yaml:"session_secret"` // required: session encryption secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // set true for HTTPS

	MaxUploadSize     int64         `yaml:"max_upload_size"`     // photo upload cap (default 10MB)
	ChangePollTimeout time.Duration `yaml:"change_poll_timeout"` // long-poll window (default 25s)
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/pocketlint.db"
	}
	if c.BlobDir == "" {
		c.BlobDir = "data/blobs"
	}
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = maxUploadSize
	}
	if c.ChangePollTimeout == 0 {
		c.ChangePollTimeout = 25 * time.Second
	}
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithDetector wires an external vision service into the upload path.
func WithDetector(d Detector) Option {
	return func(a *App) {
		a.detector = d
	}
}

// WithLogger sets the application logger (default slog.Default).
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// EnvOr returns the value of the environment variable key, or fallback if
// empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
