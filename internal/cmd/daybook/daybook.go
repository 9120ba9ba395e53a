// Package daybook parses daybook server flags and launches the service.
package daybook

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/daybook/internal/platform/cmd"
	server "github.com/louisbranch/daybook/internal/services/web/app"
)

// Config holds daybook command configuration.
type Config struct {
	server.Config
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "storage driver: sqlite or postgres")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the daybook web service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDaybook, func(ctx context.Context) error {
		return server.Run(ctx, cfg.Config)
	})
}
