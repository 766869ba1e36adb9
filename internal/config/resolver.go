package config

import (
	"os"
	"path/filepath"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

// discoveryPaths are searched, in order, relative to the workspace root when
// no explicit config path is supplied.
var discoveryPaths = []string{
	".devcontainer/devcontainer.json",
	".devcontainer.json",
	".devcontainer/devcontainer.jsonc",
}

// Discover finds the devcontainer config file for a workspace. If
// explicitPath is non-empty it is used as-is (the caller's override bypasses
// the filename allowlist). Otherwise the standard discovery paths are tried
// in order.
func Discover(workspacePath, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", coreerrors.ConfigFileNotFound(explicitPath)
		}
		return explicitPath, nil
	}

	for _, rel := range discoveryPaths {
		candidate := filepath.Join(workspacePath, rel)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", coreerrors.ConfigFileNotFound(filepath.Join(workspacePath, discoveryPaths[0]))
}

// Load discovers (if needed) and parses the devcontainer config, returning
// both the parsed Config and the path it was loaded from.
func Load(workspacePath, explicitPath string) (*Config, string, error) {
	path, err := Discover(workspacePath, explicitPath)
	if err != nil {
		return nil, "", err
	}
	cfg, err := ParseFile(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
