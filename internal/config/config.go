package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ib-77/stagepool/pkg/pipe"
)

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Simulation sizes the demo traffic run.
type Simulation struct {
	Vehicles int   `toml:"vehicles"`
	Ticks    int   `toml:"ticks"`
	Seed     int64 `toml:"seed"`
	// TickTimeoutSeconds bounds how long one tick may take to drain.
	TickTimeoutSeconds int `toml:"tick_timeout_seconds"`
}

// Stage configures one pipeline stage and the pipe it writes to.
type Stage struct {
	Name     string `toml:"name"`
	PoolSize int    `toml:"pool_size"`
	Capacity int    `toml:"capacity"`
	Overflow string `toml:"overflow"`
}

// Pipeline lists stages in upstream-to-downstream order.
type Pipeline struct {
	InputCapacity int     `toml:"input_capacity"`
	InputOverflow string  `toml:"input_overflow"`
	Stages        []Stage `toml:"stages"`
}

// Metrics configures the Prometheus observer.
type Metrics struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// Config encapsulates all configuration values for tmpipe.
//
// Configuration sections:
//   - Logging: log format and level
//   - Simulation: vehicle count, ticks and seed of the demo run
//   - Pipeline: per-stage pool sizes and output pipe policies
//   - Metrics: Prometheus namespace
type Config struct {
	Logging    Logging    `toml:"logging"`
	Simulation Simulation `toml:"simulation"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Metrics    Metrics    `toml:"metrics"`
}

// Load reads path over the defaults, then normalizes and validates. An
// empty path or a missing file yields the defaults.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	exists := false
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, false, fmt.Errorf("open config: %w", err)
		default:
			exists = true
			if err := Decode(data, &cfg); err != nil {
				return nil, false, err
			}
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return &cfg, exists, nil
}

// Decode parses TOML data into cfg. A [[pipeline.stages]] list in data
// replaces the default stages rather than merging with them.
func Decode(data []byte, cfg *Config) error {
	defaults := cfg.Pipeline.Stages
	cfg.Pipeline.Stages = nil

	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		cfg.Pipeline.Stages = defaults
		return fmt.Errorf("parse config: %w", err)
	}
	if cfg.Pipeline.Stages == nil {
		cfg.Pipeline.Stages = defaults
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func (c *Config) normalize() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Pipeline.InputOverflow = normalizeOverflow(c.Pipeline.InputOverflow)
	for i := range c.Pipeline.Stages {
		s := &c.Pipeline.Stages[i]
		s.Name = strings.TrimSpace(s.Name)
		s.Overflow = normalizeOverflow(s.Overflow)
	}
	c.Metrics.Namespace = strings.TrimSpace(c.Metrics.Namespace)
}

func normalizeOverflow(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "_", "-")
}

// PipeConfig converts the stage's output settings.
func (s Stage) PipeConfig() (pipe.Config, error) {
	return pipeConfig(s.Capacity, s.Overflow)
}

// InputPipeConfig converts the head pipe settings.
func (p Pipeline) InputPipeConfig() (pipe.Config, error) {
	return pipeConfig(p.InputCapacity, p.InputOverflow)
}

func pipeConfig(capacity int, overflow string) (pipe.Config, error) {
	o, err := pipe.ParseOverflow(overflow)
	if err != nil {
		return pipe.Config{}, err
	}
	cfg := pipe.Config{Capacity: capacity, Overflow: o}
	if err := cfg.Validate(); err != nil {
		return pipe.Config{}, err
	}
	return cfg, nil
}

// Stage returns the configured stage called name.
func (p Pipeline) Stage(name string) (Stage, bool) {
	for _, s := range p.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}
