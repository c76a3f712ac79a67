package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Relay     RelayConfig
	Pages     PagesConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// RelayConfig holds widget relay configuration.
type RelayConfig struct {
	// AllowedOrigins lists origins allowed to open relay sockets; "*" allows any.
	AllowedOrigins  []string `envconfig:"RELAY_ALLOWED_ORIGINS" default:"*"`
	SendBuffer      int      `envconfig:"RELAY_SEND_BUFFER" default:"64"`
	MaxMessageBytes int64    `envconfig:"RELAY_MAX_MESSAGE_BYTES" default:"65536"`
	// FrameTTL is how long an unbound frame from a served page is kept.
	FrameTTL time.Duration `envconfig:"RELAY_FRAME_TTL" default:"10m"`
}

// PagesConfig holds host page and widget asset locations.
type PagesConfig struct {
	Dir        string `envconfig:"PAGES_DIR" default:"./pages"`
	WidgetsDir string `envconfig:"WIDGETS_DIR" default:"./widgets"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadDotenv reads KEY=VALUE files into the environment before Load runs.
// Missing files are skipped and variables already set are never overridden.
func LoadDotenv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Relay: RelayConfig{
			AllowedOrigins:  []string{"*"},
			SendBuffer:      64,
			MaxMessageBytes: 65536,
			FrameTTL:        10 * time.Minute,
		},
		Pages: PagesConfig{
			Dir:        "./pages",
			WidgetsDir: "./widgets",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// AllowsAnyOrigin reports whether the relay accepts sockets from every origin.
func (r RelayConfig) AllowsAnyOrigin() bool {
	for _, o := range r.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}
