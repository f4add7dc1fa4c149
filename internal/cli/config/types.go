// Package config provides configuration management for the ormlite CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	Database      string               `koanf:"database"`
	Models        string               `koanf:"models"`
	Module        string               `koanf:"module"`
	MigrationsDir string               `koanf:"migrations_dir"`
	Environment   string               `koanf:"environment"`
	Verbose       bool                 `koanf:"verbose"`
	OutputFormat  string               `koanf:"output"`
	Environments  map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	Database string `koanf:"database"`
	Models   string `koanf:"models"`
}

// Default configuration values.
const (
	DefaultDatabase      = ":memory:"
	DefaultModule        = "main"
	DefaultMigrationsDir = "migrations"
	DefaultEnv           = "dev"
	DefaultOutput        = "auto" // TTY=table, non-TTY=plain
)

// Output modes.
const (
	OutputAuto  = "auto"
	OutputTable = "table"
	OutputPlain = "plain"
)
