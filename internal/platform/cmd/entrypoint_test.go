package cmd

import (
	"context"
	"flag"
	"testing"
)

type bootConfig struct {
	Addr  string `env:"CMD_TEST_ADDR" envDefault:"localhost:7070"`
	Label string `env:"CMD_TEST_LABEL" envDefault:"default"`
}

func TestParseConfigThenArgs(t *testing.T) {
	t.Setenv("CMD_TEST_ADDR", "env:7071")
	t.Setenv("CMD_TEST_LABEL", "from-env")

	var cfg bootConfig
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}

	fs := flag.NewFlagSet("boot", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.Label, "label", cfg.Label, "label")
	if err := ParseArgs(fs, []string{"-addr", "flag:7072"}); err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}

	if cfg.Addr != "flag:7072" {
		t.Errorf("Addr = %q, want flag override", cfg.Addr)
	}
	if cfg.Label != "from-env" {
		t.Errorf("Label = %q, want env value", cfg.Label)
	}
}

func TestParseConfigFromArgs(t *testing.T) {
	t.Setenv("CMD_TEST_ADDR", "env:7073")
	t.Setenv("CMD_TEST_LABEL", "combined")

	var cfg bootConfig
	fs := flag.NewFlagSet("combined", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", "", "listen address")
	fs.StringVar(&cfg.Label, "label", "", "label")
	if err := ParseConfigFromArgs(&cfg, fs, []string{"-addr", "flag:7074"}); err != nil {
		t.Fatalf("ParseConfigFromArgs: %v", err)
	}

	if cfg.Addr != "flag:7074" {
		t.Errorf("Addr = %q, want flag override", cfg.Addr)
	}
	if cfg.Label != "combined" {
		t.Errorf("Label = %q, want env value", cfg.Label)
	}
}

func TestParseArgsNilParser(t *testing.T) {
	if err := ParseArgs(nil, nil); err == nil {
		t.Fatal("expected error for nil flag set")
	}
}

func TestRunWithTelemetryValidatesInputs(t *testing.T) {
	noop := func(context.Context) error { return nil }
	if err := RunWithTelemetry(context.Background(), "  ", noop); err == nil {
		t.Error("expected error for blank service name")
	}
	if err := RunWithTelemetry(context.Background(), ServiceBuilder, nil); err == nil {
		t.Error("expected error for nil run function")
	}
}

func TestRunWithTelemetryExecutesRun(t *testing.T) {
	t.Setenv("THRESHOLD_OTEL_ENDPOINT", "")

	ran := false
	err := RunWithTelemetry(context.Background(), ServiceMCP, func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("RunWithTelemetry: %v", err)
	}
	if !ran {
		t.Fatal("run function was not called")
	}
}
