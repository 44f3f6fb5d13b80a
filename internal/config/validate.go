package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateSimulation(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateSimulation() error {
	if c.Simulation.Vehicles < 1 {
		return errors.New("simulation.vehicles must be >= 1")
	}
	if c.Simulation.Ticks < 1 {
		return errors.New("simulation.ticks must be >= 1")
	}
	if c.Simulation.TickTimeoutSeconds < 1 {
		return errors.New("simulation.tick_timeout_seconds must be >= 1")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if _, err := c.Pipeline.InputPipeConfig(); err != nil {
		return fmt.Errorf("pipeline input: %w", err)
	}
	if len(c.Pipeline.Stages) == 0 {
		return errors.New("pipeline.stages must not be empty")
	}

	seen := make(map[string]bool, len(c.Pipeline.Stages))
	for i, s := range c.Pipeline.Stages {
		if s.Name == "" {
			return fmt.Errorf("pipeline.stages[%d].name must be set", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("pipeline.stages: duplicate stage %q", s.Name)
		}
		seen[s.Name] = true
		if s.PoolSize < 1 {
			return fmt.Errorf("pipeline stage %q: pool_size must be >= 1", s.Name)
		}
		if _, err := s.PipeConfig(); err != nil {
			return fmt.Errorf("pipeline stage %q: %w", s.Name, err)
		}
	}
	return nil
}
