// Package commands implements the rxhash subcommands.
package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Giulio2002/randomx"
)

// Config is the rxhash profile.
type Config struct {
	Key string `yaml:"key"`
	// Flags is a comma-separated flag list, see randomx.ParseFlagNames.
	Flags   string `yaml:"flags"`
	Fast    bool   `yaml:"fast"`
	Workers int    `yaml:"workers"`

	Logger *zap.Logger `yaml:"-"`
}

// DefaultConfig is used when no profile exists.
func DefaultConfig() *Config {
	return &Config{Flags: "recommended"}
}

// LoadConfig reads the profile at path over DefaultConfig. A missing file is
// only an error when the path was given explicitly.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if _, err := cfg.EngineFlags(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("profile %s: workers must not be negative", path)
	}
	return cfg, nil
}

// EngineFlags parses Flags.
func (c *Config) EngineFlags() (randomx.Flags, error) {
	return randomx.ParseFlagNames(c.Flags)
}

// Overrides holds the command-line flags that take precedence over the
// profile.
type Overrides struct {
	key     string
	flags   string
	fast    bool
	workers int
}

// Register adds the override flags to fs.
func (o *Overrides) Register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.key, "key", "k", "", "Cache key")
	fs.StringVar(&o.flags, "flags", "recommended", "Comma-separated engine flags")
	fs.BoolVar(&o.fast, "fast", false, "Build a dataset and hash in fast mode")
	fs.IntVar(&o.workers, "workers", 0, "Dataset fill goroutines (0: one per CPU)")
}

// Apply copies every flag the user set onto cfg.
func (o *Overrides) Apply(fs *pflag.FlagSet, cfg *Config) {
	if fs.Changed("key") {
		cfg.Key = o.key
	}
	if fs.Changed("flags") {
		cfg.Flags = o.flags
	}
	if fs.Changed("fast") {
		cfg.Fast = o.fast
	}
	if fs.Changed("workers") {
		cfg.Workers = o.workers
	}
}

// NewLogger builds a development logger with debug enabled and a
// warnings-only production logger otherwise.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return zc.Build()
}
