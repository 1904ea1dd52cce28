package runtime

import (
	"context"
	"fmt"
	"time"
)

// Executor runs a single script to completion.
type Executor interface {
	Run(ctx context.Context, command string, args []string) (*Result, error)
}

// Result captures the outcome of one script execution.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ScriptFailedError reports a script that ran and exited non-zero.
type ScriptFailedError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ScriptFailedError) Error() string {
	msg := fmt.Sprintf("script %s exited with code %d", e.Command, e.Code)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// ScriptUnavailableError reports a script that could not be started: it is
// missing, not executable, or not on PATH.
type ScriptUnavailableError struct {
	Command string
	Err     error
}

func (e *ScriptUnavailableError) Error() string {
	return fmt.Sprintf("script %s unavailable: %v", e.Command, e.Err)
}

func (e *ScriptUnavailableError) Unwrap() error { return e.Err }

// ScriptTimeoutError reports a script killed after exceeding its time limit.
type ScriptTimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *ScriptTimeoutError) Error() string {
	return fmt.Sprintf("script %s timed out after %s", e.Command, e.Timeout)
}
