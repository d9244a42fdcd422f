package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// CompassHome returns the compass home directory.
// Priority order:
//  1. COMPASS_HOME environment variable (if set)
//  2. nearest ancestor directory containing a .compass-root marker
//  3. current working directory (fallback)
//
// The .compass directory under the resolved root is created if it
// does not exist.
func CompassHome() (string, error) {
	if home := os.Getenv("COMPASS_HOME"); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create compass home %s: %w", home, err)
		}
		return home, nil
	}

	root, err := findProjectRoot()
	if err != nil || root == "" {
		root, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
	}

	home := filepath.Join(root, ".compass")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create compass home %s: %w", home, err)
	}
	return home, nil
}

// findProjectRoot walks up from the working directory looking for a
// .compass-root marker file.
func findProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	current := cwd
	for {
		marker := filepath.Join(current, ".compass-root")
		if _, err := os.Stat(marker); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", nil
		}
		current = parent
	}
}
