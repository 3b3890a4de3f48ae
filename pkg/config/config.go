// Package config holds the analysis task configuration. Files are JSON with
// comments and trailing commas allowed.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/jeremytregunna/aodkit/pkg/aod"
	"github.com/jeremytregunna/aodkit/pkg/common/log"
	"github.com/jeremytregunna/aodkit/pkg/replicator"
	"github.com/jeremytregunna/aodkit/pkg/telemetry"
)

const (
	DefaultConfigFileName = "aodkit.jsonc"
	CurrentConfigVersion  = 1
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrConfigNotFound = errors.New("config file not found")
)

type Config struct {
	Version int `json:"version"`

	// Task configuration
	TaskName         string            `json:"task_name"`
	MCMode           replicator.MCMode `json:"mc_mode"`
	WithSPDTracklets bool              `json:"with_spd_tracklets"`
	MuonCuts         aod.MuonCuts      `json:"muon_cuts"`

	// Output configuration, 0 keeps every event
	OutputCapacity int `json:"output_capacity"`

	LogLevel  string           `json:"log_level"`
	Telemetry telemetry.Config `json:"telemetry"`

	mu sync.RWMutex
}

// NewDefaultConfig creates a Config matching the task defaults: muon related
// MC truth, no SPD tracklets and the bare muon selection.
func NewDefaultConfig() *Config {
	return &Config{
		Version:  CurrentConfigVersion,
		TaskName: "AOD2MuonAOD",
		MCMode:   replicator.MCMuonRelated,
		LogLevel: "info",

		Telemetry: telemetry.DefaultConfig(),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validate()
}

func (c *Config) validate() error {
	if c.Version <= 0 {
		return fmt.Errorf("%w: invalid version %d", ErrInvalidConfig, c.Version)
	}

	if c.TaskName == "" {
		return fmt.Errorf("%w: task name not specified", ErrInvalidConfig)
	}

	if !c.MCMode.Valid() {
		return fmt.Errorf("%w: unknown MC mode %d", ErrInvalidConfig, int(c.MCMode))
	}

	cuts := c.MuonCuts
	if cuts.EtaMin > cuts.EtaMax {
		return fmt.Errorf("%w: eta range [%g, %g] is empty", ErrInvalidConfig, cuts.EtaMin, cuts.EtaMax)
	}
	if cuts.RAbsMin > cuts.RAbsMax || cuts.RAbsMin < 0 {
		return fmt.Errorf("%w: rabs range [%g, %g] is invalid", ErrInvalidConfig, cuts.RAbsMin, cuts.RAbsMax)
	}
	if cuts.MinPt < 0 {
		return fmt.Errorf("%w: minimum pt must not be negative", ErrInvalidConfig)
	}

	if c.OutputCapacity < 0 {
		return fmt.Errorf("%w: output capacity must not be negative", ErrInvalidConfig)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("%w: telemetry: %v", ErrInvalidConfig, err)
	}

	return nil
}

// Level returns the parsed log level, falling back to info
func (c *Config) Level() log.Level {
	c.mu.RLock()
	defer c.mu.RUnlock()

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return level
}

// Load reads the configuration at path. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes a configuration document on top of the defaults
func Parse(data []byte) (*Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := NewDefaultConfig()
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save atomically writes the configuration to path
func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Update applies the given function to modify the configuration
func (c *Config) Update(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}

// Snapshot returns a copy of the configuration safe to read without locking
func (c *Config) Snapshot() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cp := &Config{
		Version:          c.Version,
		TaskName:         c.TaskName,
		MCMode:           c.MCMode,
		WithSPDTracklets: c.WithSPDTracklets,
		MuonCuts:         c.MuonCuts,
		OutputCapacity:   c.OutputCapacity,
		LogLevel:         c.LogLevel,
		Telemetry:        c.Telemetry,
	}
	cp.Telemetry.Exporters = append([]string(nil), c.Telemetry.Exporters...)
	return cp
}
