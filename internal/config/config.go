// Package config handles vssgen configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Schema     string        `yaml:"schema"`
	Units      int           `yaml:"units"`
	Snapshots  int           `yaml:"snapshots"`
	ChangeRate float64       `yaml:"change_rate"`
	Size       float64       `yaml:"size"`
	Seed       *uint64       `yaml:"seed"` // nil draws a random seed
	Output     OutputConfig  `yaml:"output"`
	Store      StoreConfig   `yaml:"store"`
	Metrics    MetricsConfig `yaml:"metrics"`
	Log        LogConfig     `yaml:"log"`
}

// OutputConfig holds the snapshot file layout settings.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
	Clean  bool   `yaml:"clean"` // remove Dir before the run
}

// StoreConfig holds the optional SQLite snapshot store.
type StoreConfig struct {
	Path string `yaml:"path"` // "" disables the store
}

// MetricsConfig holds the optional Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// LogConfig holds slog settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Schema:     "./vss_rel_4.2.json",
		Units:      1,
		Snapshots:  1,
		ChangeRate: 0.2,
		Size:       1.0,
		Output: OutputConfig{
			Dir:    "./output",
			Prefix: "car",
			Clean:  true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads config from path, or returns default if path is empty
// or the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return Load(path)
}

// #region env
// Environment overrides.
const (
	EnvSchema   = "VSSGEN_SCHEMA"
	EnvOutput   = "VSSGEN_OUTPUT"
	EnvDB       = "VSSGEN_DB"
	EnvLogLevel = "VSSGEN_LOG_LEVEL"
)

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	c.Schema = envOr(EnvSchema, c.Schema)
	c.Output.Dir = envOr(EnvOutput, c.Output.Dir)
	c.Store.Path = envOr(EnvDB, c.Store.Path)
	c.Log.Level = envOr(EnvLogLevel, c.Log.Level)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion env

// #region validate
// Validate rejects settings the generator cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Schema == "" {
		errs = append(errs, errors.New("schema path is required"))
	}
	if c.Units < 1 {
		errs = append(errs, fmt.Errorf("units must be >= 1, got %d", c.Units))
	}
	if c.Snapshots < 1 {
		errs = append(errs, fmt.Errorf("snapshots must be >= 1, got %d", c.Snapshots))
	}
	if !(c.ChangeRate >= 0 && c.ChangeRate <= 1) {
		errs = append(errs, fmt.Errorf("change_rate must be in [0, 1], got %v", c.ChangeRate))
	}
	if !(c.Size >= 0 && c.Size <= 1) {
		errs = append(errs, fmt.Errorf("size must be in [0, 1], got %v", c.Size))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir is required"))
	}
	return errors.Join(errs...)
}

// #endregion validate
