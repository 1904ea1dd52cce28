package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/agentx-labs/cortex/internal/log"
	"github.com/agentx-labs/cortex/internal/registry"
	"github.com/agentx-labs/cortex/internal/resolve"
	"github.com/agentx-labs/cortex/internal/userdata"
)

// session is everything a command needs to look up and dispatch commands.
type session struct {
	Root string
	CWD  string
	// Layers are the variable sources; Vars is their merge. Invocation
	// arguments are bound later by the dispatcher.
	Layers resolve.Layers
	Vars   resolve.Vars
}

// newSession resolves the install root and builds the variable layers from
// settings and flags.
func newSession() (*session, error) {
	root, err := userdata.ResolveRoot(settings.Root)
	if err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	envPath, optional := settings.EnvFile, false
	if envPath == "" {
		envPath, optional = userdata.DefaultEnvPath(root), true
	}
	envVars, err := userdata.LoadEnvVars(envPath, optional)
	if err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	flags, err := parseVarFlags(flagVars)
	if err != nil {
		return nil, err
	}

	s := &session{
		Root: root,
		CWD:  cwd,
		Layers: resolve.Layers{
			Builtins: resolve.Builtins(root, cwd),
			EnvFile:  envVars,
			Config:   upperKeys(settings.Vars),
			Flags:    flags,
		},
	}
	s.Vars = s.Layers.Builtins.Merge(s.Layers.EnvFile, s.Layers.Config, s.Layers.Flags)
	return s, nil
}

// Sources lists where command definitions are discovered, in registration
// order.
func (s *session) Sources() []registry.Source {
	userDir := settings.CommandsDir
	if userDir == "" {
		userDir = userdata.UserCommandsDir()
	}
	return []registry.Source{
		registry.Builtin(),
		{Name: registry.SourceRoot, BasePath: userdata.RootCommandsDir(s.Root)},
		{Name: registry.SourceUser, BasePath: userDir},
		{Name: registry.SourceProject, BasePath: userdata.ProjectCommandsDir(s.CWD)},
	}
}

// Registry loads every source. Duplicate names are fatal; other per-file
// problems are logged and the file is skipped.
func (s *session) Registry() (*registry.Registry, error) {
	reg, err := registry.Load(s.Sources(), registry.LoadOptions{Version: buildVersion})
	if err == nil {
		return reg, nil
	}

	logger := log.For("registry")
	var fatal []error
	for _, e := range flatten(err) {
		var dup *registry.DuplicateCommandError
		if errors.As(e, &dup) {
			fatal = append(fatal, e)
			continue
		}
		logger.WithError(e).Warn("skipping command definition")
	}
	if len(fatal) > 0 {
		return nil, errors.Join(fatal...)
	}
	return reg, nil
}

// flatten expands an errors.Join tree into its leaves.
func flatten(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

// parseVarFlags parses KEY=VALUE pairs.
func parseVarFlags(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --var %q: expected KEY=VALUE", p)
		}
		result[strings.TrimSpace(key)] = value
	}
	return result, nil
}

// upperKeys restores conventional upper-case names for config vars, which
// viper lower-cases.
func upperKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToUpper(k)] = v
	}
	return out
}
