package resolve

import (
	"strconv"
	"strings"
)

// Names of the built-in variables.
const (
	VarPluginRoot       = "PLUGIN_ROOT"
	VarCortexRoot       = "CORTEX_ROOT"
	VarClaudePluginRoot = "CLAUDE_PLUGIN_ROOT"
	VarCWD              = "CWD"
	VarArguments        = "ARGUMENTS"
)

// Builtins returns the variables every invocation starts with. root is the
// install root; cwd is the caller's working directory.
func Builtins(root, cwd string) Vars {
	return Vars{
		VarPluginRoot:       root,
		VarCortexRoot:       root,
		VarClaudePluginRoot: root,
		VarCWD:              cwd,
	}
}

// Args binds invocation arguments: ${ARGUMENTS} is all of them joined by a
// space and ${1}..${n} are positional.
func Args(args []string) Vars {
	v := Vars{VarArguments: strings.Join(args, " ")}
	for i, a := range args {
		v[strconv.Itoa(i+1)] = a
	}
	return v
}

// Layers holds variable sources in increasing precedence.
type Layers struct {
	Builtins Vars
	EnvFile  map[string]string
	Config   map[string]string
	Flags    map[string]string
	Args     []string
}

// Build merges the layers; later layers win.
func (l Layers) Build() Vars {
	return l.Builtins.Merge(l.EnvFile, l.Config, l.Flags, Args(l.Args))
}
