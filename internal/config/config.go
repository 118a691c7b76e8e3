// Package config loads harness settings from optional TOML files.
// Defaults reproduce the zero-configuration behavior: server binary at a
// fixed relative path, no environment variables required.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultServerPath      = "./xcode-build-mcp"
	defaultExchangeTimeout = 30 * time.Second
	defaultScenarioPause   = 500 * time.Millisecond
	defaultStderrLimitKB   = 64
	defaultLogMaxSizeBytes = 10 * 1024 * 1024
	defaultLogMaxFiles     = 5
)

// Config stores runtime settings loaded from TOML files.
type Config struct {
	ServerPath       string
	ExchangeTimeout  time.Duration
	ScenarioPause    time.Duration
	StderrLimitBytes int
	LogMaxSizeBytes  int64
	LogMaxFiles      int
}

type fileConfig struct {
	ServerPath      *string `toml:"server_path"`
	ExchangeTimeout *string `toml:"exchange_timeout"`
	ScenarioPause   *string `toml:"scenario_pause"`
	StderrLimitKB   *int    `toml:"stderr_limit_kb"`
	LogMaxSizeMB    *int    `toml:"log_max_size_mb"`
	LogMaxFiles     *int    `toml:"log_max_files"`
}

// Load reads config from ~/.simprobe/config.toml and overlays a
// project-local .simprobe/config.toml. Missing files are not an error.
func Load() (*Config, error) {
	cfg := defaults()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	paths := []string{
		filepath.Join(homeDir, ".simprobe", "config.toml"),
		filepath.Join(workingDir, ".simprobe", "config.toml"),
	}
	for _, path := range paths {
		if err := overlayFromFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func defaults() Config {
	return Config{
		ServerPath:       defaultServerPath,
		ExchangeTimeout:  defaultExchangeTimeout,
		ScenarioPause:    defaultScenarioPause,
		StderrLimitBytes: defaultStderrLimitKB * 1024,
		LogMaxSizeBytes:  defaultLogMaxSizeBytes,
		LogMaxFiles:      defaultLogMaxFiles,
	}
}

func overlayFromFile(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config must not be nil")
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config file %q: %w", path, err)
	}

	var decoded fileConfig
	if _, err := toml.DecodeFile(path, &decoded); err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}

	if decoded.ServerPath != nil {
		cfg.ServerPath = *decoded.ServerPath
	}
	if decoded.ExchangeTimeout != nil {
		value, err := parseDuration(*decoded.ExchangeTimeout, "exchange_timeout", path)
		if err != nil {
			return err
		}
		cfg.ExchangeTimeout = value
	}
	if decoded.ScenarioPause != nil {
		value, err := parseDuration(*decoded.ScenarioPause, "scenario_pause", path)
		if err != nil {
			return err
		}
		cfg.ScenarioPause = value
	}
	if decoded.StderrLimitKB != nil {
		if *decoded.StderrLimitKB <= 0 {
			return fmt.Errorf("parse stderr_limit_kb in %q: must be > 0", path)
		}
		cfg.StderrLimitBytes = *decoded.StderrLimitKB * 1024
	}
	if decoded.LogMaxSizeMB != nil {
		if *decoded.LogMaxSizeMB <= 0 {
			return fmt.Errorf("parse log_max_size_mb in %q: must be > 0", path)
		}
		cfg.LogMaxSizeBytes = int64(*decoded.LogMaxSizeMB) * 1024 * 1024
	}
	if decoded.LogMaxFiles != nil {
		if *decoded.LogMaxFiles <= 0 {
			return fmt.Errorf("parse log_max_files in %q: must be > 0", path)
		}
		cfg.LogMaxFiles = *decoded.LogMaxFiles
	}
	return nil
}

func parseDuration(value, key, path string) (time.Duration, error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s in %q: %w", key, path, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("parse %s in %q: must not be negative", key, path)
	}
	return parsed, nil
}
