// Package config loads a storage node's pkg/config.Config from disk,
// applies environment overrides, and wires up the process-wide slog
// logger. Grounded on cmd/init.go's initConfig/initLogger pattern, lifted
// out of cmd/ so every node binary (and its tests) can share one loader
// instead of each cmd package reimplementing it.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"geofabric/pkg/config"
)

// Load reads YAML config from path, falling back to config.Default() if the
// file does not exist, then overlays environment variables. It loads a
// .env file first (if present) so those variables are visible to the
// overlay; a missing .env file is not an error.
func Load(path string) (config.Config, error) {
	_ = godotenv.Load()

	var cfg config.Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("config file not found, using defaults", "path", path)
			return config.ApplyEnv(config.Default()), nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg = config.Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return config.ApplyEnv(cfg), nil
}

// InitLogger installs a process-wide slog logger matching cfg's level and
// format (JSON for production, text for local development).
func InitLogger(cfg config.Config) {
	level := parseLevel(cfg.Logger.Level)
	opts := &slog.HandlerOptions{AddSource: true, Level: level}

	var handler slog.Handler
	if cfg.Logger.JSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
