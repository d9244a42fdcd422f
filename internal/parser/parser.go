// Package parser loads and validates module definition files.
//
// A module definition is a declarative YAML document: ordered steps,
// each with fields and options carrying scores and flags, plus the
// scoring tiers. Definitions are loaded once per module and treated
// as read-only afterwards.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meredith/compass/internal/models"
)

// Parse reads one module definition from r.
func Parse(r io.Reader) (*models.ModuleConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read module definition: %w", err)
	}

	var cfg models.ModuleConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse module definition: %w", err)
	}
	return &cfg, nil
}

// ParseFile loads one module definition from disk. Only YAML files
// are supported.
func ParseFile(path string) (*models.ModuleConfig, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported module file %s (supported: .yaml, .yml)", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open module file: %w", err)
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// LoadDir loads every module definition in dir, keyed by product id.
// Non-YAML files and dotfiles are skipped.
func LoadDir(dir string) (map[string]*models.ModuleConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read modules directory: %w", err)
	}

	modules := make(map[string]*models.ModuleConfig)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		cfg, err := ParseFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if cfg.ProductID == "" {
			return nil, fmt.Errorf("%s: module has no product id", entry.Name())
		}
		if _, dup := modules[cfg.ProductID]; dup {
			return nil, fmt.Errorf("%s: duplicate module for product %s", entry.Name(), cfg.ProductID)
		}
		modules[cfg.ProductID] = cfg
	}
	return modules, nil
}
