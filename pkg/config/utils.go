package config

import (
	"os"
	"path/filepath"
)

// findEnvFile resolves name against the working directory and its parents,
// so tests running inside a package directory still pick up the repository
// root's env file. Absolute paths are only checked for existence.
func findEnvFile(name string) (string, error) {
	if name == "" {
		name = ".env"
	}
	if filepath.IsAbs(name) {
		_, err := os.Stat(name)
		return name, err
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
