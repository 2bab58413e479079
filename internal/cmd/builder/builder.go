// Package builder parses builder service flags and launches the service.
package builder

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/threshold.games/internal/platform/cmd"
	"github.com/louisbranch/threshold.games/internal/services/builder/api"
	"github.com/louisbranch/threshold.games/internal/services/builder/session"
	sqlitestore "github.com/louisbranch/threshold.games/internal/services/builder/storage/sqlite"
	"github.com/louisbranch/threshold.games/internal/telemetry"
)

// Config holds builder command configuration.
type Config struct {
	HTTPAddr string `env:"THRESHOLD_BUILDER_HTTP_ADDR" envDefault:"localhost:8090"`
	DBPath   string `env:"THRESHOLD_BUILDER_DB_PATH"   envDefault:"builder.db"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The builder HTTP server address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the builder SQLite database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the builder HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceBuilder, func(ctx context.Context) error {
		store, err := sqlitestore.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		server, err := api.NewServer(api.Config{HTTPAddr: cfg.HTTPAddr}, api.Dependencies{
			Store:    store,
			Sessions: session.NewManager(),
			Emitter:  telemetry.NewEmitter(store),
		})
		if err != nil {
			return err
		}
		return server.ListenAndServe(ctx)
	})
}
