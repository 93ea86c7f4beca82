package cli

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
)

const claudeBinaryName = "claude"

// ErrCLINotFound is returned when no worker executable can be located.
var ErrCLINotFound = errors.New("claude CLI not found in PATH or common locations")

// findCLI locates the worker binary: an explicit path first, then $PATH,
// then the usual install locations.
func findCLI(explicit *string) (string, error) {
	if explicit != nil && *explicit != "" {
		return *explicit, nil
	}
	if path, err := exec.LookPath(claudeBinaryName); err == nil {
		return path, nil
	}

	homeDir, _ := os.UserHomeDir()
	locations := []string{
		filepath.Join(homeDir, ".npm-global", "bin", claudeBinaryName),
		"/usr/local/bin/" + claudeBinaryName,
		filepath.Join(homeDir, ".local", "bin", claudeBinaryName),
		filepath.Join(homeDir, "node_modules", ".bin", claudeBinaryName),
		filepath.Join(homeDir, ".yarn", "bin", claudeBinaryName),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc, nil
		}
	}

	return "", ErrCLINotFound
}
