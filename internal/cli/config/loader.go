package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// configKey is used to store the loaded config in context.
type configKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

var configNames = []string{"ormlite.yaml", "ormlite.yml"}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
)

// configIn returns the config file in dir, or "".
func configIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRootUpward searches upward from startDir for an ormlite config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for range maxUpwardSearchLevels {
		if configIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || path == DefaultDatabase {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Relative paths from the config file resolve against the project root, the
// directory holding the config file; paths given as flags resolve against
// the working directory.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")
	configFileUsed = ""

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	projectRoot := cwd
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
		configFileUsed = cfgFile
	} else if root := findProjectRootUpward(cwd); root != "" {
		projectRoot = root
		configFileUsed = configIn(root)
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"database":       DefaultDatabase,
		"module":         DefaultModule,
		"migrations_dir": DefaultMigrationsDir,
		"environment":    DefaultEnv,
		"verbose":        false,
		"output":         DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables: ORMLITE_MIGRATIONS_DIR -> migrations_dir
	if err := k.Load(env.Provider("ORMLITE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "ORMLITE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	cfg.Database = resolvePathRelativeTo(expandEnvVars(cfg.Database), projectRoot)
	cfg.Models = resolvePathRelativeTo(cfg.Models, projectRoot)
	cfg.MigrationsDir = resolvePathRelativeTo(cfg.MigrationsDir, projectRoot)

	// 4. Flags (highest priority, only those explicitly set)
	if flags != nil {
		fk := koanf.New(".")
		if err := fk.Load(posflag.ProviderWithFlag(flags, ".", fk, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
		applyFlags(&cfg, fk, cwd)
	}

	// Environment overrides apply to values not set by a flag.
	if envCfg, ok := cfg.Environments[cfg.Environment]; ok {
		if envCfg.Database != "" && !changed(flags, "database") {
			cfg.Database = resolvePathRelativeTo(expandEnvVars(envCfg.Database), projectRoot)
		}
		if envCfg.Models != "" && !changed(flags, "models") {
			cfg.Models = resolvePathRelativeTo(envCfg.Models, projectRoot)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyFlags(cfg *Config, fk *koanf.Koanf, cwd string) {
	if fk.Exists("database") {
		cfg.Database = resolvePathRelativeTo(fk.String("database"), cwd)
	}
	if fk.Exists("models") {
		cfg.Models = resolvePathRelativeTo(fk.String("models"), cwd)
	}
	if fk.Exists("migrations_dir") {
		cfg.MigrationsDir = resolvePathRelativeTo(fk.String("migrations_dir"), cwd)
	}
	if fk.Exists("module") {
		cfg.Module = fk.String("module")
	}
	if fk.Exists("env") {
		cfg.Environment = fk.String("env")
	}
	if fk.Exists("verbose") {
		cfg.Verbose = fk.Bool("verbose")
	}
	if fk.Exists("output") {
		cfg.OutputFormat = fk.String("output")
	}
}

func changed(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	f := flags.Lookup(name)
	return f != nil && f.Changed
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// LoggerKey returns the context key used for storing the logger.
func LoggerKey() any {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() any {
	return configKey{}
}

// GetConfig retrieves the config from the command context, falling back to
// the defaults when none was loaded.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		Database:      DefaultDatabase,
		Module:        DefaultModule,
		MigrationsDir: DefaultMigrationsDir,
		Environment:   DefaultEnv,
		OutputFormat:  DefaultOutput,
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment variable values.
// Unknown variables are left as they are.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}
