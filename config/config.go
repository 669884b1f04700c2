// Package config loads the runtime settings of the pipeline service.
//
// Settings are resolved in three layers, later layers winning:
// built-in defaults, an optional TOML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the service settings.
type Config struct {
	// Addr is the listen address of the HTTP gateway.
	Addr string `toml:"addr"`
	// AllowedOrigins lists the browser origins permitted by CORS.
	AllowedOrigins []string `toml:"allowed_origins"`
	// DatabaseURL enables the postgres analysis recorder when set.
	DatabaseURL string `toml:"database_url"`
	LogLevel    string `toml:"log_level"`
	Metrics     bool   `toml:"metrics"`
	// Tracing selects the span exporter: "" (off) or "stdout".
	Tracing string `toml:"tracing"`
	// BodyLimit is the maximum request body size in bytes.
	BodyLimit       int      `toml:"body_limit"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Duration is a time.Duration written as a Go duration string ("5s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Addr:            ":8000",
		AllowedOrigins:  []string{"http://localhost:3000"},
		LogLevel:        "info",
		Metrics:         true,
		BodyLimit:       4 * 1024 * 1024,
		ReadTimeout:     Duration{10 * time.Second},
		WriteTimeout:    Duration{10 * time.Second},
		ShutdownTimeout: Duration{5 * time.Second},
	}
}

// Load resolves the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ADDR"); ok && v != "" {
		c.Addr = v
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("METRICS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: METRICS: %w", err)
		}
		c.Metrics = b
	}
	if v, ok := lookup("TRACING"); ok {
		c.Tracing = v
	}
	return nil
}

// Validate reports settings that cannot be served.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr is empty")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("config: allowed_origins is empty")
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return fmt.Errorf("config: wildcard origin cannot be combined with credentials")
		}
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("config: body_limit must be positive")
	}
	switch c.Tracing {
	case "", "stdout":
	default:
		return fmt.Errorf("config: unknown tracing exporter %q", c.Tracing)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
