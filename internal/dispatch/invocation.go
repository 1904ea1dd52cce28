package dispatch

import (
	"strings"

	"github.com/agentx-labs/cortex/internal/manifest"
	"github.com/agentx-labs/cortex/internal/reference"
	"github.com/agentx-labs/cortex/internal/resolve"
	"github.com/agentx-labs/cortex/internal/runtime"
)

// Invocation is the working state of one dispatch. It is owned by a single
// Invoke call and never shared.
type Invocation struct {
	Name     string
	Args     []string
	Command  *manifest.Command
	Vars     resolve.Vars
	Sections []ResolvedSection
	State    State
}

// ResolvedSection is a section with its placeholders substituted, plus
// whatever running or loading it produced.
type ResolvedSection struct {
	manifest.Section
	// Text is the resolved literal, reference path, or script command line.
	Text string
	// Argv is the resolved script argv.
	Argv []string
	// Result is set once a script section has run.
	Result *runtime.Result
	// Err records a script failure tolerated by the failure policy.
	Err error
	// Content is set once a reference section has loaded.
	Content *reference.Content
}

// Transcript is the rendered output of a successful invocation.
type Transcript struct {
	Command string
	Text    string
	// Scripts holds the outcome of every script section, in order.
	Scripts []ScriptOutcome
	// References lists the documents that were inlined, in order.
	References []reference.Content
}

// ScriptOutcome records one script section's execution.
type ScriptOutcome struct {
	Line   int
	Argv   []string
	Result *runtime.Result
	Err    error
}

func (t *Transcript) String() string { return t.Text }

// render joins literal text, non-empty script stdout, and reference text in
// declared order, separated by blank lines.
func (inv *Invocation) render() *Transcript {
	t := &Transcript{Command: inv.Name}
	var parts []string
	add := func(s string) {
		if s = strings.TrimRight(s, "\r\n"); strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}

	for _, rs := range inv.Sections {
		switch rs.Kind {
		case manifest.KindLiteral:
			add(rs.Text)
		case manifest.KindScript:
			t.Scripts = append(t.Scripts, ScriptOutcome{Line: rs.Line, Argv: rs.Argv, Result: rs.Result, Err: rs.Err})
			if rs.Result != nil {
				add(rs.Result.Stdout)
			}
		case manifest.KindReference:
			if rs.Content != nil {
				t.References = append(t.References, *rs.Content)
				add(rs.Content.Text)
			}
		}
	}

	t.Text = strings.Join(parts, "\n\n")
	if t.Text != "" {
		t.Text += "\n"
	}
	return t
}
