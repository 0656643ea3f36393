// Package config loads rthumb configuration from the environment and the
// command line.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration.
type Config struct {
	// Folder shown at startup; empty means the documents folder.
	StartPath string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Thumbnails; 0 picks max(1, NumCPU-1).
	Workers int

	// Prometheus endpoint; empty disables it.
	MetricsAddr string

	ShowHidden bool
	ShowHelp   bool
}

// Load reads configuration from environment variables with defaults, then
// applies command-line arguments on top.
func Load(args []string) (*Config, error) {
	cfg := &Config{
		LogLevel:    envOr("RTHUMB_LOG_LEVEL", "info"),
		LogFormat:   envOr("RTHUMB_LOG_FORMAT", "json"),
		LogFile:     envOr("RTHUMB_LOG_FILE", ""),
		MetricsAddr: envOr("RTHUMB_METRICS_ADDR", ""),
		ShowHidden:  envBool("RTHUMB_SHOW_HIDDEN", false),
	}

	workers, err := envInt("RTHUMB_WORKERS", 0)
	if err != nil {
		return nil, err
	}
	cfg.Workers = workers

	if err := cfg.applyArgs(args); err != nil {
		return nil, err
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	return cfg, nil
}

func (c *Config) applyArgs(args []string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "--help":
			c.ShowHelp = true
		case arg == "-a" || arg == "--all":
			c.ShowHidden = true
		case strings.HasPrefix(arg, "--metrics-addr="):
			c.MetricsAddr = strings.TrimPrefix(arg, "--metrics-addr=")
		case arg == "--metrics-addr":
			if i+1 >= len(args) {
				return fmt.Errorf("%s requires a value", arg)
			}
			i++
			c.MetricsAddr = args[i]
		case strings.HasPrefix(arg, "--workers="):
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "--workers="))
			if err != nil {
				return fmt.Errorf("invalid --workers value: %w", err)
			}
			c.Workers = n
		case strings.HasPrefix(arg, "-") && arg != "-":
			return fmt.Errorf("unknown option %s", arg)
		default:
			if c.StartPath != "" {
				return fmt.Errorf("unexpected argument %s", arg)
			}
			c.StartPath = arg
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
