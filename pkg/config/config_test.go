package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/jeremytregunna/aodkit/pkg/aod"
	"github.com/jeremytregunna/aodkit/pkg/common/log"
	"github.com/jeremytregunna/aodkit/pkg/replicator"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Version != CurrentConfigVersion {
		t.Errorf("expected version %d, got %d", CurrentConfigVersion, cfg.Version)
	}

	if cfg.MCMode != replicator.MCMuonRelated {
		t.Errorf("expected MC mode %v, got %v", replicator.MCMuonRelated, cfg.MCMode)
	}

	if cfg.WithSPDTracklets {
		t.Errorf("expected SPD tracklets to be disabled by default")
	}

	if cfg.Telemetry.Enabled {
		t.Errorf("expected telemetry to be disabled by default")
	}

	if cfg.Level() != log.LevelInfo {
		t.Errorf("expected info level, got %s", cfg.Level())
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid default config, got error: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(*Config)
		expected string
	}{
		{
			name:     "invalid version",
			mutate:   func(c *Config) { c.Version = 0 },
			expected: "invalid configuration: invalid version 0",
		},
		{
			name:     "empty task name",
			mutate:   func(c *Config) { c.TaskName = "" },
			expected: "invalid configuration: task name not specified",
		},
		{
			name:     "unknown MC mode",
			mutate:   func(c *Config) { c.MCMode = 3 },
			expected: "invalid configuration: unknown MC mode 3",
		},
		{
			name:     "empty eta range",
			mutate:   func(c *Config) { c.MuonCuts.EtaMin, c.MuonCuts.EtaMax = -2.5, -4 },
			expected: "invalid configuration: eta range [-2.5, -4] is empty",
		},
		{
			name:     "negative rabs",
			mutate:   func(c *Config) { c.MuonCuts.RAbsMin = -1 },
			expected: "invalid configuration: rabs range [-1, 0] is invalid",
		},
		{
			name:     "negative pt",
			mutate:   func(c *Config) { c.MuonCuts.MinPt = -0.5 },
			expected: "invalid configuration: minimum pt must not be negative",
		},
		{
			name:     "negative capacity",
			mutate:   func(c *Config) { c.OutputCapacity = -1 },
			expected: "invalid configuration: output capacity must not be negative",
		},
		{
			name:     "bad log level",
			mutate:   func(c *Config) { c.LogLevel = "loud" },
			expected: "invalid configuration:",
		},
		{
			name:     "bad telemetry",
			mutate:   func(c *Config) { c.Telemetry.SampleRate = 2 },
			expected: "invalid configuration: telemetry:",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), tc.expected) {
				t.Errorf("expected error starting with %q, got %q", tc.expected, err.Error())
			}
		})
	}
}

func TestParseComments(t *testing.T) {
	doc := []byte(`{
	// forward muon arm acceptance
	"muon_cuts": {"eta_min": -4.0, "eta_max": -2.5, "rabs_min": 17.6, "rabs_max": 89.5},
	"mc_mode": 2,
	"with_spd_tracklets": true,
	"log_level": "debug", // trailing comma below is fine
}`)

	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := aod.MuonCuts{EtaMin: -4, EtaMax: -2.5, RAbsMin: 17.6, RAbsMax: 89.5}
	if diff := cmp.Diff(want, cfg.MuonCuts); diff != "" {
		t.Errorf("cuts mismatch (-want +got):\n%s", diff)
	}
	if cfg.MCMode != replicator.MCAll || !cfg.WithSPDTracklets {
		t.Errorf("unexpected task settings: %v %v", cfg.MCMode, cfg.WithSPDTracklets)
	}
	if cfg.Level() != log.LevelDebug {
		t.Errorf("expected debug level, got %s", cfg.Level())
	}
	// Untouched keys keep their defaults
	if cfg.TaskName != "AOD2MuonAOD" || cfg.Version != CurrentConfigVersion {
		t.Errorf("defaults lost: %q %d", cfg.TaskName, cfg.Version)
	}
}

func TestParseErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"syntax":      `{"mc_mode": }`,
		"unknown key": `{"wal_dir": "/tmp"}`,
		"invalid":     `{"mc_mode": 9}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFileName)

	cfg := NewDefaultConfig()
	cfg.Update(func(c *Config) {
		c.MCMode = replicator.MCNone
		c.MuonCuts.MinPt = 1.5
		c.OutputCapacity = 100
	})

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if diff := cmp.Diff(cfg.Snapshot(), loaded.Snapshot(), cmpopts.IgnoreUnexported(Config{})); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)

	cfg := NewDefaultConfig()
	cfg.Update(func(c *Config) { c.Version = 0 })

	if err := cfg.Save(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("invalid config should not be written")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}
