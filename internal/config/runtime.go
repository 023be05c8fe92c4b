package config

import (
	"os"
	"path/filepath"
)

const defaultRuntimeDir = ".parley"

// GetRuntimePath is read before any .env is loaded, so it looks at the process
// environment only.
func GetRuntimePath() string {
	return resolveRuntimePath(os.Getenv("PARLEY_RUNTIME_PATH"))
}

func resolveRuntimePath(path string) string {
	if path == "" {
		path = defaultRuntimeDir
	}

	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}
