// Package mcp parses MCP command flags and serves builder tools over stdio.
package mcp

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/threshold.games/internal/platform/cmd"
	"github.com/louisbranch/threshold.games/internal/services/builder/mcp/service"
	"github.com/louisbranch/threshold.games/internal/services/builder/session"
	sqlitestore "github.com/louisbranch/threshold.games/internal/services/builder/storage/sqlite"
)

// Config holds MCP command configuration.
type Config struct {
	DBPath string `env:"THRESHOLD_BUILDER_DB_PATH" envDefault:"builder.db"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the builder SQLite database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP protocol adapter on stdio.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		store, err := sqlitestore.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		server, err := service.New(store, session.NewManager())
		if err != nil {
			return err
		}
		return server.Serve(ctx)
	})
}
