package config

import (
	"fmt"
	"os"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Module == "" {
		return fmt.Errorf("module is required")
	}
	switch c.OutputFormat {
	case OutputAuto, OutputTable, OutputPlain:
	default:
		return fmt.Errorf("invalid output format %q, must be one of: auto, table, plain", c.OutputFormat)
	}
	return nil
}

// ValidateModels checks that a model file is configured and exists.
func (c *Config) ValidateModels() error {
	if c.Models == "" {
		return fmt.Errorf("no model file configured\nHint: set models in ormlite.yaml or pass --models")
	}
	if _, err := os.Stat(c.Models); os.IsNotExist(err) {
		return fmt.Errorf("model file does not exist: %s", c.Models)
	}
	return nil
}
