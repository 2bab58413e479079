// Package scenario parses scenario command flags and replays Lua scripts
// against a builder server.
package scenario

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/louisbranch/threshold.games/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	BaseURL    string        `env:"THRESHOLD_BUILDER_URL"       envDefault:"http://localhost:8090"`
	CampaignID string        `env:"THRESHOLD_SCENARIO_CAMPAIGN" envDefault:"scenario"`
	Scenario   string        `env:"THRESHOLD_SCENARIO_FILE"`
	Assertions bool          `env:"THRESHOLD_SCENARIO_ASSERT"   envDefault:"true"`
	Verbose    bool          `env:"THRESHOLD_SCENARIO_VERBOSE"`
	Timeout    time.Duration `env:"THRESHOLD_SCENARIO_TIMEOUT"  envDefault:"10s"`
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "builder server base URL")
	fs.StringVar(&cfg.CampaignID, "campaign", cfg.CampaignID, "campaign id for scratch definitions")
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
	fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "enable assertions (disable to log expectations)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout per step")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the scenario command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	mode := scenario.AssertionStrict
	if !cfg.Assertions {
		mode = scenario.AssertionLogOnly
	}

	logger := log.New(errOut, "", 0)
	return scenario.RunFile(ctx, scenario.Config{
		BaseURL:    cfg.BaseURL,
		CampaignID: cfg.CampaignID,
		Timeout:    cfg.Timeout,
		Assertions: mode,
		Verbose:    cfg.Verbose,
		Logger:     logger,
	}, cfg.Scenario)
}
