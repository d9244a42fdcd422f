// Package config loads compass configuration and resolves the compass
// home directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds compass runtime options.
type Config struct {
	// DataDir is where the record database and session locks live.
	// Relative paths are resolved against the compass home.
	DataDir string `yaml:"data_dir"`

	// ModulesDir is where module definition files are loaded from.
	ModulesDir string `yaml:"modules_dir"`

	// LogLevel sets console verbosity (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LenientFlags switches the flag registry from strict rejection of
	// unknown flag ids (development default) to drop-with-warning
	// (production resilience against config drift).
	LenientFlags bool `yaml:"lenient_flags"`

	// ReportDir is where exported outcome reports are written.
	ReportDir string `yaml:"report_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:    "data",
		ModulesDir: "modules",
		LogLevel:   "info",
		ReportDir:  "reports",
	}
}

// Load reads the config file at path. A missing file yields the
// defaults; a present but malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadFromHome loads config.yaml from the compass home directory and
// resolves relative paths against it.
func LoadFromHome() (Config, error) {
	home, err := CompassHome()
	if err != nil {
		return Default(), err
	}
	cfg, err := Load(filepath.Join(home, "config.yaml"))
	if err != nil {
		return cfg, err
	}
	cfg.resolveAgainst(home)
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.ModulesDir == "" {
		c.ModulesDir = def.ModulesDir
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.ReportDir == "" {
		c.ReportDir = def.ReportDir
	}
}

func (c *Config) resolveAgainst(home string) {
	for _, dir := range []*string{&c.DataDir, &c.ModulesDir, &c.ReportDir} {
		if !filepath.IsAbs(*dir) {
			*dir = filepath.Join(home, *dir)
		}
	}
}

// DBPath returns the record database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "compass.db")
}
