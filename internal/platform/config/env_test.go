package config

import (
	"strings"
	"testing"
)

type sampleConfig struct {
	Port int `env:"THRESHOLD_TEST_PORT" envDefault:"123"`
}

func TestParseEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg sampleConfig
		if err := ParseEnv(&cfg); err != nil {
			t.Fatalf("ParseEnv: %v", err)
		}
		if cfg.Port != 123 {
			t.Errorf("Port = %d, want default 123", cfg.Port)
		}
	})

	t.Run("override", func(t *testing.T) {
		t.Setenv("THRESHOLD_TEST_PORT", "9090")
		var cfg sampleConfig
		if err := ParseEnv(&cfg); err != nil {
			t.Fatalf("ParseEnv: %v", err)
		}
		if cfg.Port != 9090 {
			t.Errorf("Port = %d, want env override 9090", cfg.Port)
		}
	})

	t.Run("malformed value", func(t *testing.T) {
		t.Setenv("THRESHOLD_TEST_PORT", "not-a-number")
		var cfg sampleConfig
		err := ParseEnv(&cfg)
		if err == nil {
			t.Fatal("expected error for malformed value")
		}
		if !strings.Contains(err.Error(), "parse environment:") {
			t.Errorf("error = %v, want parse environment prefix", err)
		}
	})
}
