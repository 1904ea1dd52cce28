//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir    string // CORTEX_HOME: config.yaml and commands/
	RootDir    string // plugin root: scripts/, CORTEX.md, commands/
	ProjectDir string // a mock project with .cortex/commands
}

// setupTestEnv creates isolated temp directories and sets environment variables
// so all Cortex operations are sandboxed. The env vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on Windows")
	}

	env := &testEnv{
		HomeDir:    t.TempDir(),
		RootDir:    t.TempDir(),
		ProjectDir: t.TempDir(),
	}

	t.Setenv("CORTEX_HOME", env.HomeDir)
	t.Setenv("CORTEX_COMMANDS", filepath.Join(env.HomeDir, "commands"))

	return env
}

// setupPlugin lays out a plugin root the way the built-in start command
// expects: a bootstrap script that records its argument and a CORTEX.md.
func setupPlugin(t *testing.T, root string) {
	t.Helper()
	writeExecutable(t, filepath.Join(root, "scripts", "bootstrap.sh"), `#!/bin/sh
set -eu
mkdir -p "$PLUGIN_ROOT/state"
echo "$1" > "$PLUGIN_ROOT/state/bootstrapped"
`)
	writeFile(t, filepath.Join(root, "CORTEX.md"), "# Cortex\n\nYou maintain the agents and worlds of this workspace.\n")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func writeExecutable(t *testing.T, path, content string) {
	t.Helper()
	writeFile(t, path, content)
	if err := os.Chmod(path, 0755); err != nil {
		t.Fatalf("chmod %s: %v", path, err)
	}
}

func assertFileContent(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if string(data) != want {
		t.Errorf("%s = %q, want %q", path, data, want)
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected %s not to exist", path)
	}
}
