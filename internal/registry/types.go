package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Source is a location to search for command definitions.
type Source struct {
	Name     string // e.g. "builtin", "user", "project"
	BasePath string // root directory; used for display when FS is set
	// FS, when set, is walked instead of BasePath.
	FS fs.FS
}

// ErrSealed is returned by Register once the registry has been sealed.
var ErrSealed = errors.New("registry is sealed")

// DuplicateCommandError reports a second definition for an existing name.
type DuplicateCommandError struct {
	Name     string
	Existing string // path of the definition already registered
	Path     string // path of the rejected definition
}

func (e *DuplicateCommandError) Error() string {
	msg := fmt.Sprintf("duplicate command %q", e.Name)
	if e.Existing != "" || e.Path != "" {
		msg += fmt.Sprintf(": defined in %s and %s", e.Existing, e.Path)
	}
	return msg
}

// UnknownCommandError reports a lookup for a name that is not registered.
type UnknownCommandError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownCommandError) Error() string {
	msg := fmt.Sprintf("unknown command %q", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf("; did you mean %s?", strings.Join(e.Suggestions, ", "))
	}
	return msg
}
