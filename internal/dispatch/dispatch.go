package dispatch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/agentx-labs/cortex/internal/log"
	"github.com/agentx-labs/cortex/internal/manifest"
	"github.com/agentx-labs/cortex/internal/reference"
	"github.com/agentx-labs/cortex/internal/registry"
	"github.com/agentx-labs/cortex/internal/resolve"
	"github.com/agentx-labs/cortex/internal/runtime"
	"github.com/agentx-labs/cortex/internal/tools"
	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// Options configures a Dispatcher.
type Options struct {
	// Registry supplies command definitions.
	Registry registry.Lookuper
	// Root is the install root: scripts start there and relative reference
	// paths resolve against it.
	Root string
	// Vars are the variables bound before invocation arguments are added.
	Vars resolve.Vars
	// Loader reads reference documents. A default uncached loader rooted at
	// Root is used when nil.
	Loader *reference.Loader
	// Timeout bounds each script section. Zero means no limit.
	Timeout time.Duration
	// OnScriptFailure is the policy for commands that do not set one.
	// Empty means abort.
	OnScriptFailure string
	// ScriptStdout and ScriptStderr receive a live copy of script output.
	ScriptStdout io.Writer
	ScriptStderr io.Writer
	// Observer is notified of every state transition.
	Observer Observer
	// Logger defaults to the "dispatch" component logger.
	Logger *logrus.Entry
}

// Dispatcher runs command invocations. It holds no per-invocation state and
// is safe for concurrent use.
type Dispatcher struct {
	opts   Options
	loader *reference.Loader
	log    *logrus.Entry
}

// New creates a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("dispatcher requires a registry")
	}
	switch opts.OnScriptFailure {
	case "", manifest.PolicyAbort, manifest.PolicyContinue:
	default:
		return nil, fmt.Errorf("invalid script failure policy %q", opts.OnScriptFailure)
	}

	d := &Dispatcher{opts: opts, loader: opts.Loader, log: opts.Logger}
	if d.loader == nil {
		l, err := reference.NewLoader(reference.Options{Dir: opts.Root})
		if err != nil {
			return nil, err
		}
		d.loader = l
	}
	if d.log == nil {
		d.log = log.For("dispatch")
	}
	return d, nil
}

// ParseLine splits a user command line into a command name and arguments.
// A leading "/" on the name is optional.
func ParseLine(line string) (name string, args []string, err error) {
	fields, err := shlex.Split(strings.TrimSpace(line))
	if err != nil {
		return "", nil, fmt.Errorf("parsing command line: %w", err)
	}
	if len(fields) == 0 {
		return "", nil, nil
	}
	return strings.TrimPrefix(fields[0], "/"), fields[1:], nil
}

// Dispatch parses line and invokes the named command.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) (*Transcript, error) {
	name, args, err := ParseLine(line)
	if err != nil {
		return nil, &Error{Kind: KindOther, Section: -1, Err: err}
	}
	return d.Invoke(ctx, name, args)
}

// Invoke runs the named command with args.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args []string) (*Transcript, error) {
	inv := &Invocation{Name: name, Args: args, State: StateParsed}

	cmd, err := d.opts.Registry.Lookup(name)
	if err != nil {
		return nil, d.fail(inv, -1, err)
	}
	inv.Command = cmd
	inv.Name = cmd.Name

	if err := d.checkTools(inv); err != nil {
		return nil, err
	}
	if err := d.resolve(inv); err != nil {
		return nil, err
	}
	if err := d.runScripts(ctx, inv); err != nil {
		return nil, err
	}
	if err := d.loadReferences(inv); err != nil {
		return nil, err
	}

	t := inv.render()
	d.transition(inv, StateReady, -1, nil)
	return t, nil
}

// checkTools verifies by name that every section's tool is allowed.
func (d *Dispatcher) checkTools(inv *Invocation) error {
	for i, s := range inv.Command.Sections {
		tool := s.Kind.Tool()
		if tool == "" {
			continue
		}
		if err := inv.Command.Permission.Check(tool, ""); err != nil {
			return d.fail(inv, i, err)
		}
	}
	d.transition(inv, StateToolsChecked, -1, nil)
	return nil
}

// resolve substitutes placeholders in every section, then checks resolved
// script command lines against the Bash patterns.
func (d *Dispatcher) resolve(inv *Invocation) error {
	d.transition(inv, StateResolving, -1, nil)

	inv.Vars = d.opts.Vars.Merge(resolve.Args(inv.Args))
	inv.Sections = make([]ResolvedSection, len(inv.Command.Sections))

	for i, s := range inv.Command.Sections {
		rs := ResolvedSection{Section: s}
		var err error
		switch s.Kind {
		case manifest.KindScript:
			rs.Argv, err = resolve.ResolveAll(s.Argv, inv.Vars)
			rs.Text = strings.Join(rs.Argv, " ")
		default:
			rs.Text, err = resolve.Resolve(s.Text, inv.Vars)
		}
		if err != nil {
			return d.fail(inv, i, err)
		}
		inv.Sections[i] = rs
	}

	for i, rs := range inv.Sections {
		if rs.Kind != manifest.KindScript {
			continue
		}
		if err := inv.Command.Permission.Check(tools.Bash, rs.Text); err != nil {
			return d.fail(inv, i, err)
		}
	}
	return nil
}

// runScripts executes script sections in declared order.
func (d *Dispatcher) runScripts(ctx context.Context, inv *Invocation) error {
	d.transition(inv, StateRunning, -1, nil)

	runner := &runtime.Runner{
		Dir:     d.opts.Root,
		Vars:    inv.Vars,
		Timeout: d.opts.Timeout,
		Stdout:  d.opts.ScriptStdout,
		Stderr:  d.opts.ScriptStderr,
	}

	for i := range inv.Sections {
		rs := &inv.Sections[i]
		if rs.Kind != manifest.KindScript {
			continue
		}
		entry := d.log.WithFields(logrus.Fields{"command": inv.Name, "section": i, "script": rs.Argv[0]})
		entry.Debug("running script")

		res, err := runner.Run(ctx, rs.Argv[0], rs.Argv[1:])
		rs.Result = res
		if err == nil {
			entry.WithField("duration", res.Duration).Debug("script finished")
			continue
		}
		if ctx.Err() != nil {
			return d.fail(inv, i, err)
		}
		if d.continueOnFailure(inv.Command, rs.Section) {
			rs.Err = err
			entry.WithError(err).Warn("script failed, continuing")
			continue
		}
		return d.fail(inv, i, err)
	}
	return nil
}

// continueOnFailure applies the failure policy: a best-effort section, then
// the command's own policy, then the dispatcher default.
func (d *Dispatcher) continueOnFailure(cmd *manifest.Command, s manifest.Section) bool {
	if s.BestEffort {
		return true
	}
	policy := cmd.OnScriptFailure
	if policy == "" {
		policy = d.opts.OnScriptFailure
	}
	return policy == manifest.PolicyContinue
}

// loadReferences reads reference sections in declared order.
func (d *Dispatcher) loadReferences(inv *Invocation) error {
	d.transition(inv, StateLoading, -1, nil)

	for i := range inv.Sections {
		rs := &inv.Sections[i]
		if rs.Kind != manifest.KindReference {
			continue
		}
		c, err := d.loader.Load(rs.Text)
		if err != nil {
			return d.fail(inv, i, err)
		}
		rs.Content = &c
	}
	return nil
}

func (d *Dispatcher) fail(inv *Invocation, section int, err error) error {
	e := &Error{Kind: KindOf(err), Command: inv.Name, Section: section, Err: err}
	if inv.Command != nil && section >= 0 && section < len(inv.Command.Sections) {
		e.Line = inv.Command.Sections[section].Line
	}
	d.transition(inv, StateFailed, section, e)
	return e
}

func (d *Dispatcher) transition(inv *Invocation, to State, section int, err error) {
	from := inv.State
	inv.State = to

	entry := d.log.WithFields(logrus.Fields{"command": inv.Name, "state": to.String()})
	if section >= 0 {
		entry = entry.WithField("section", section)
	}
	if err != nil {
		entry.WithError(err).Debug("invocation failed")
	} else {
		entry.Debug("state transition")
	}

	if d.opts.Observer != nil {
		d.opts.Observer(Transition{Command: inv.Name, From: from, To: to, Section: section, Err: err})
	}
}
