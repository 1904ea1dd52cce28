package dispatch

import (
	"errors"
	"fmt"

	"github.com/agentx-labs/cortex/internal/reference"
	"github.com/agentx-labs/cortex/internal/registry"
	"github.com/agentx-labs/cortex/internal/resolve"
	"github.com/agentx-labs/cortex/internal/runtime"
	"github.com/agentx-labs/cortex/internal/tools"
)

// Kind classifies an invocation failure.
type Kind int

const (
	// KindOther covers failures outside the taxonomy, such as cancellation.
	KindOther Kind = iota
	KindUnresolvedVariable
	KindDuplicateCommand
	KindUnknownCommand
	KindToolNotAllowed
	KindScriptFailed
	KindScriptUnavailable
	KindScriptTimeout
	KindReferenceNotFound
	KindReferenceUnreadable
)

func (k Kind) String() string {
	switch k {
	case KindUnresolvedVariable:
		return "UnresolvedVariable"
	case KindDuplicateCommand:
		return "DuplicateCommand"
	case KindUnknownCommand:
		return "UnknownCommand"
	case KindToolNotAllowed:
		return "ToolNotAllowed"
	case KindScriptFailed:
		return "ScriptFailed"
	case KindScriptUnavailable:
		return "ScriptUnavailable"
	case KindScriptTimeout:
		return "ScriptTimeout"
	case KindReferenceNotFound:
		return "ReferenceNotFound"
	case KindReferenceUnreadable:
		return "ReferenceUnreadable"
	default:
		return "Other"
	}
}

// KindOf classifies err by the typed errors it wraps.
func KindOf(err error) Kind {
	var (
		de  *Error
		uv  *resolve.UnresolvedVariableError
		dup *registry.DuplicateCommandError
		unk *registry.UnknownCommandError
		tna *tools.ToolNotAllowedError
		sf  *runtime.ScriptFailedError
		su  *runtime.ScriptUnavailableError
		st  *runtime.ScriptTimeoutError
		rnf *reference.ReferenceNotFoundError
		ru  *reference.ReferenceUnreadableError
	)
	switch {
	case err == nil:
		return KindOther
	case errors.As(err, &de):
		return de.Kind
	case errors.As(err, &uv):
		return KindUnresolvedVariable
	case errors.As(err, &dup):
		return KindDuplicateCommand
	case errors.As(err, &unk):
		return KindUnknownCommand
	case errors.As(err, &tna):
		return KindToolNotAllowed
	case errors.As(err, &sf):
		return KindScriptFailed
	case errors.As(err, &su):
		return KindScriptUnavailable
	case errors.As(err, &st):
		return KindScriptTimeout
	case errors.As(err, &rnf):
		return KindReferenceNotFound
	case errors.As(err, &ru):
		return KindReferenceUnreadable
	default:
		return KindOther
	}
}

// Error is the failure of one invocation.
type Error struct {
	Kind    Kind
	Command string
	// Section is the index of the failing section, or -1 when the failure is
	// not tied to one.
	Section int
	// Line is the source line of the failing section, or 0.
	Line int
	Err  error
}

func (e *Error) Error() string {
	where := e.Command
	if where == "" {
		where = "dispatch"
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s: line %d", where, e.Line)
	}
	return fmt.Sprintf("%s: %s: %v", where, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode returns the script's exit code for ScriptFailed errors, or -1.
func (e *Error) ExitCode() int {
	var sf *runtime.ScriptFailedError
	if errors.As(e.Err, &sf) {
		return sf.Code
	}
	return -1
}
