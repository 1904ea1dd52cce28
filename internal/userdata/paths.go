package userdata

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentx-labs/cortex/internal/branding"
	"github.com/agentx-labs/cortex/internal/config"
)

// Directory and file name constants for the userdata convention.
const (
	CommandsDir    = "commands"
	ProjectDir     = ".cortex"
	DefaultEnvFile = "cortex.env"
)

// Permission constants.
const (
	DirPermNormal  os.FileMode = 0755
	FilePermNormal os.FileMode = 0644
)

// ResolveRoot returns the absolute plugin install root. The configured value
// wins; otherwise the parent of the directory holding the running binary is
// used when it contains a scripts/ directory, and the working directory
// otherwise.
func ResolveRoot(configured string) (string, error) {
	if configured != "" {
		abs, err := filepath.Abs(configured)
		if err != nil {
			return "", fmt.Errorf("resolving root %s: %w", configured, err)
		}
		return abs, nil
	}

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Dir(filepath.Dir(exe))
		if DirExists(filepath.Join(candidate, "scripts")) {
			return candidate, nil
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return cwd, nil
}

// UserCommandsDir returns the user-level command directory.
// It checks the CORTEX_COMMANDS environment variable first,
// then falls back to ~/.cortex/commands.
func UserCommandsDir() string {
	if v := os.Getenv(branding.EnvVar("COMMANDS")); v != "" {
		return v
	}
	return filepath.Join(config.Dir(), CommandsDir)
}

// ProjectCommandsDir returns <projectRoot>/.cortex/commands.
func ProjectCommandsDir(projectRoot string) string {
	return filepath.Join(projectRoot, ProjectDir, CommandsDir)
}

// RootCommandsDir returns <root>/commands, where a plugin ships its own
// command definitions.
func RootCommandsDir(root string) string {
	return filepath.Join(root, CommandsDir)
}

// DefaultEnvPath returns the env file consulted when none is configured:
// <root>/cortex.env.
func DefaultEnvPath(root string) string {
	return filepath.Join(root, DefaultEnvFile)
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
