package runtime

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentx-labs/cortex/internal/branding"
	"github.com/agentx-labs/cortex/internal/platform"
)

// waitDelay bounds how long Wait blocks on inherited pipes after the child
// has been killed.
const waitDelay = 2 * time.Second

// Runner executes scripts as child processes.
type Runner struct {
	// Dir is the working directory for the child, normally the install root.
	// Relative script paths are resolved against it.
	Dir string
	// Vars are exported into the child environment under the CORTEX_ prefix.
	// PLUGIN_ROOT is also exported unprefixed.
	Vars map[string]string
	// Timeout bounds each Run. Zero means no limit.
	Timeout time.Duration
	// Stdout and Stderr, when set, receive a live copy of the child's output.
	Stdout io.Writer
	Stderr io.Writer
}

var _ Executor = (*Runner)(nil)

// Run executes command with args and waits for it to finish. On a non-zero
// exit both the Result and a *ScriptFailedError are returned.
func (r *Runner) Run(ctx context.Context, command string, args []string) (*Result, error) {
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.executable(command), args...)
	cmd.Dir = r.Dir
	cmd.Env = r.buildEnv()
	platform.SetProcessGroup(cmd)
	cmd.Cancel = func() error { return platform.KillProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = tee(&stdoutBuf, r.Stdout)
	cmd.Stderr = tee(&stderrBuf, r.Stderr)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if runCtx.Err() != nil {
			return nil, &ScriptTimeoutError{Command: command, Timeout: r.Timeout}
		}
		return nil, &ScriptUnavailableError{Command: command, Err: err}
	}
	err := cmd.Wait()

	result := &Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(start),
	}

	switch {
	case ctx.Err() != nil:
		return result, ctx.Err()
	case runCtx.Err() != nil:
		return result, &ScriptTimeoutError{Command: command, Timeout: r.Timeout}
	case err == nil:
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &ScriptFailedError{Command: command, Code: result.ExitCode, Stderr: result.Stderr}
	}
	return result, &ScriptUnavailableError{Command: command, Err: err}
}

// executable resolves a relative path containing a separator against Dir and
// makes it absolute, since exec would otherwise apply a relative Dir twice.
// Bare names are left for PATH lookup.
func (r *Runner) executable(command string) string {
	if r.Dir == "" || filepath.IsAbs(command) || !strings.ContainsRune(filepath.ToSlash(command), '/') {
		return command
	}
	path := filepath.Join(r.Dir, command)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// buildEnv inherits the current process environment and adds the resolved
// variables.
func (r *Runner) buildEnv() []string {
	env := os.Environ()
	for k, v := range r.Vars {
		env = setEnv(env, branding.EnvVar(k), v)
	}
	if root, ok := r.Vars["PLUGIN_ROOT"]; ok {
		env = setEnv(env, "PLUGIN_ROOT", root)
	}
	return env
}

// setEnv sets or replaces an environment variable in the env slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(w, buf)
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
