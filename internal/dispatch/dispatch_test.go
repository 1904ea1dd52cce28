package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/agentx-labs/cortex/internal/manifest"
	"github.com/agentx-labs/cortex/internal/reference"
	"github.com/agentx-labs/cortex/internal/registry"
	"github.com/agentx-labs/cortex/internal/resolve"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on Windows")
	}
}

// pluginRoot lays out a plugin root with a bootstrap script and CORTEX.md.
func pluginRoot(t *testing.T, script string, cortexMD bool) string {
	t.Helper()
	root := t.TempDir()
	if script != "" {
		writeFile(t, filepath.Join(root, "scripts", "bootstrap.sh"), "#!/bin/sh\n"+script+"\n", 0755)
	}
	if cortexMD {
		writeFile(t, filepath.Join(root, "CORTEX.md"), "# Cortex\n\nYou are the meta-agent.\n", 0644)
	}
	return root
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}

func builtinRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Load([]registry.Source{registry.Builtin()}, registry.LoadOptions{Version: "dev"})
	if err != nil {
		t.Fatalf("loading builtins: %v", err)
	}
	return reg
}

// registryOf registers a single command parsed from content.
func registryOf(t *testing.T, name, content string) *registry.Registry {
	t.Helper()
	cmd, err := manifest.Parse([]byte(content), name)
	if err != nil {
		t.Fatalf("parsing %s: %v", name, err)
	}
	reg := registry.New()
	if err := reg.Register(cmd); err != nil {
		t.Fatal(err)
	}
	reg.Seal()
	return reg
}

type recorder struct {
	transitions []Transition
}

func (r *recorder) observe(tr Transition) { r.transitions = append(r.transitions, tr) }

func (r *recorder) states() []State {
	var out []State
	for _, tr := range r.transitions {
		out = append(out, tr.To)
	}
	return out
}

func newDispatcher(t *testing.T, reg registry.Lookuper, root string, rec *recorder, mutate ...func(*Options)) *Dispatcher {
	t.Helper()
	opts := Options{
		Registry: reg,
		Root:     root,
		Vars:     resolve.Builtins(root, root),
		Timeout:  10 * time.Second,
	}
	if rec != nil {
		opts.Observer = rec.observe
	}
	for _, m := range mutate {
		m(&opts)
	}
	d, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestDispatch_StartReady(t *testing.T) {
	skipOnWindows(t)
	root := pluginRoot(t, `test "$1" = "agents/meta-agent" || exit 9`, true)
	rec := &recorder{}
	d := newDispatcher(t, builtinRegistry(t), root, rec)

	tr, err := d.Dispatch(context.Background(), "/start")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	want := "# Cortex\n\nYou are the meta-agent.\n\n" +
		"Cortex is ready. What would you like to do?\n\n" +
		"- `/create-agent` to design a new agent\n" +
		"- `/create-world` to set up a new world\n"
	if tr.Text != want {
		t.Errorf("transcript =\n%s\nwant\n%s", tr.Text, want)
	}
	if tr.Command != "start" {
		t.Errorf("Command = %q", tr.Command)
	}
	if len(tr.Scripts) != 1 || tr.Scripts[0].Result.ExitCode != 0 {
		t.Errorf("Scripts = %+v", tr.Scripts)
	}
	if len(tr.References) != 1 || tr.References[0].Path != filepath.Join(root, "CORTEX.md") {
		t.Errorf("References = %+v", tr.References)
	}

	wantStates := []State{StateToolsChecked, StateResolving, StateRunning, StateLoading, StateReady}
	if got := rec.states(); !reflect.DeepEqual(got, wantStates) {
		t.Errorf("states = %v, want %v", got, wantStates)
	}
}

func TestDispatch_MissingReference(t *testing.T) {
	skipOnWindows(t)
	root := pluginRoot(t, "exit 0", false)
	rec := &recorder{}
	d := newDispatcher(t, builtinRegistry(t), root, rec)

	tr, err := d.Invoke(context.Background(), "start", nil)
	if tr != nil {
		t.Error("transcript produced on failure")
	}

	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if de.Kind != KindReferenceNotFound {
		t.Errorf("Kind = %v, want ReferenceNotFound", de.Kind)
	}
	var nf *reference.ReferenceNotFoundError
	if !errors.As(err, &nf) || nf.Path != filepath.Join(root, "CORTEX.md") {
		t.Errorf("not-found path = %v, want resolved %s", err, filepath.Join(root, "CORTEX.md"))
	}
	if !strings.Contains(err.Error(), filepath.Join(root, "CORTEX.md")) {
		t.Errorf("message %q should name the resolved path", err.Error())
	}

	last := rec.transitions[len(rec.transitions)-1]
	if last.To != StateFailed || last.From != StateLoading {
		t.Errorf("last transition = %v -> %v, want Loading -> Failed", last.From, last.To)
	}
}

func TestDispatch_ScriptUnavailableSkipsReferences(t *testing.T) {
	root := pluginRoot(t, "", true)
	rec := &recorder{}
	d := newDispatcher(t, builtinRegistry(t), root, rec)

	_, err := d.Invoke(context.Background(), "start", nil)
	if got := KindOf(err); got != KindScriptUnavailable {
		t.Fatalf("KindOf = %v (%v), want ScriptUnavailable", got, err)
	}
	for _, s := range rec.states() {
		if s == StateLoading {
			t.Error("references were loaded after a script failure")
		}
	}
}

func TestDispatch_ScriptFailedAborts(t *testing.T) {
	skipOnWindows(t)
	root := pluginRoot(t, "echo oops >&2; exit 4", true)
	d := newDispatcher(t, builtinRegistry(t), root, nil)

	_, err := d.Invoke(context.Background(), "start", nil)
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if de.Kind != KindScriptFailed || de.ExitCode() != 4 {
		t.Errorf("Kind = %v, ExitCode = %d; want ScriptFailed, 4", de.Kind, de.ExitCode())
	}
	if de.Line == 0 {
		t.Error("Line not set for script section")
	}
}

func TestDispatch_ToolNotAllowedBeforeScripts(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	marker := filepath.Join(root, "ran")

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing Bash",
			content: "---\ndescription: x\nallowed-tools: [Read]\n---\n" +
				"!touch " + marker + "\n",
		},
		{
			name: "missing Read after a script",
			content: "---\ndescription: x\nallowed-tools: [Bash]\n---\n" +
				"!touch " + marker + "\n@notes.md\n",
		},
		{
			name: "pattern mismatch",
			content: "---\ndescription: x\nallowed-tools: [\"Bash(git:*)\"]\n---\n" +
				"!touch " + marker + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDispatcher(t, registryOf(t, "guarded", tt.content), root, nil)
			_, err := d.Invoke(context.Background(), "guarded", nil)
			if got := KindOf(err); got != KindToolNotAllowed {
				t.Fatalf("KindOf = %v (%v), want ToolNotAllowed", got, err)
			}
			if _, statErr := os.Stat(marker); statErr == nil {
				t.Fatal("script ran despite tool violation")
			}
		})
	}
}

func TestDispatch_PatternAllowsResolvedCommand(t *testing.T) {
	skipOnWindows(t)
	root := pluginRoot(t, "echo boot", false)
	content := "---\ndescription: x\nallowed-tools: [\"Bash(" + root + "/scripts/bootstrap.sh:*)\"]\n---\n" +
		"!`${PLUGIN_ROOT}/scripts/bootstrap.sh go`\n"
	d := newDispatcher(t, registryOf(t, "boot", content), root, nil)

	tr, err := d.Invoke(context.Background(), "boot", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if tr.Text != "boot\n" {
		t.Errorf("Text = %q, want %q", tr.Text, "boot\n")
	}
}

func TestDispatch_UnresolvedVariable(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	marker := filepath.Join(root, "ran")
	content := "---\ndescription: x\nallowed-tools: [Bash]\n---\n" +
		"!touch " + marker + "\n" +
		"Hello ${WORLD_NAME}\n"
	rec := &recorder{}
	d := newDispatcher(t, registryOf(t, "greet", content), root, rec)

	_, err := d.Invoke(context.Background(), "greet", nil)
	var uv *resolve.UnresolvedVariableError
	if !errors.As(err, &uv) || uv.Name != "WORLD_NAME" {
		t.Fatalf("err = %v, want UnresolvedVariable WORLD_NAME", err)
	}
	if KindOf(err) != KindUnresolvedVariable {
		t.Errorf("KindOf = %v", KindOf(err))
	}
	if _, statErr := os.Stat(marker); statErr == nil {
		t.Error("script ran before resolution finished")
	}
	if last := rec.transitions[len(rec.transitions)-1]; last.From != StateResolving {
		t.Errorf("failed from %v, want Resolving", last.From)
	}
}

func TestState_Terminal(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateParsed, false},
		{StateToolsChecked, false},
		{StateResolving, false},
		{StateRunning, false},
		{StateLoading, false},
		{StateReady, true},
		{StateFailed, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%v.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestDispatch_MalformedPlaceholder(t *testing.T) {
	content := "---\ndescription: x\n---\nhello ${MISSING-VAR}\n"
	d := newDispatcher(t, registryOf(t, "p", content), t.TempDir(), nil)

	_, err := d.Invoke(context.Background(), "p", nil)
	var uv *resolve.UnresolvedVariableError
	if !errors.As(err, &uv) || uv.Name != "MISSING-VAR" {
		t.Fatalf("err = %v, want UnresolvedVariable MISSING-VAR", err)
	}
	if KindOf(err) != KindUnresolvedVariable {
		t.Errorf("KindOf = %v, want %v", KindOf(err), KindUnresolvedVariable)
	}
}

func TestDispatch_ArgumentsBound(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	content := "---\ndescription: x\nallowed-tools: [Bash]\n---\n" +
		"!echo \"${1}\"\n" +
		"All: ${ARGUMENTS}\n"
	d := newDispatcher(t, registryOf(t, "echo", content), root, nil)

	tr, err := d.Dispatch(context.Background(), `/echo "new world" second`)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	want := "new world\n\nAll: new world second\n"
	if tr.Text != want {
		t.Errorf("Text = %q, want %q", tr.Text, want)
	}
}

func TestDispatch_FailurePolicy(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()

	tests := []struct {
		name          string
		frontPolicy   string
		defaultPolicy string
		bestEffort    bool
		wantErr       bool
	}{
		{"default aborts", "", "", false, true},
		{"configured continue", "", manifest.PolicyContinue, false, false},
		{"command overrides config", manifest.PolicyAbort, manifest.PolicyContinue, false, true},
		{"command continue", manifest.PolicyContinue, "", false, false},
		{"best effort section", manifest.PolicyAbort, "", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm := "---\ndescription: x\nallowed-tools: [Bash]\n"
			if tt.frontPolicy != "" {
				fm += "on-script-failure: " + tt.frontPolicy + "\n"
			}
			fm += "---\n"
			bang := "!"
			if tt.bestEffort {
				bang = "!?"
			}
			content := fm + bang + "sh -c 'echo partial; exit 2'\n" + "!echo after\n" + "done\n"

			d := newDispatcher(t, registryOf(t, "p", content), root, nil, func(o *Options) {
				o.OnScriptFailure = tt.defaultPolicy
			})
			tr, err := d.Invoke(context.Background(), "p", nil)
			if tt.wantErr {
				if KindOf(err) != KindScriptFailed {
					t.Fatalf("err = %v, want ScriptFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if want := "partial\n\nafter\n\ndone\n"; tr.Text != want {
				t.Errorf("Text = %q, want %q", tr.Text, want)
			}
			if tr.Scripts[0].Err == nil {
				t.Error("tolerated failure not recorded")
			}
		})
	}
}

func TestDispatch_Timeout(t *testing.T) {
	skipOnWindows(t)
	root := pluginRoot(t, "sleep 30", true)
	d := newDispatcher(t, builtinRegistry(t), root, nil, func(o *Options) {
		o.Timeout = 100 * time.Millisecond
	})

	start := time.Now()
	_, err := d.Invoke(context.Background(), "start", nil)
	if KindOf(err) != KindScriptTimeout {
		t.Fatalf("err = %v, want ScriptTimeout", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("timeout did not stop the script")
	}
}

func TestDispatch_UnknownCommand(t *testing.T) {
	rec := &recorder{}
	d := newDispatcher(t, builtinRegistry(t), t.TempDir(), rec)

	_, err := d.Dispatch(context.Background(), "/strat")
	var de *Error
	if !errors.As(err, &de) || de.Kind != KindUnknownCommand {
		t.Fatalf("err = %v, want UnknownCommand", err)
	}
	if !strings.Contains(err.Error(), "did you mean start") {
		t.Errorf("message %q lacks suggestion", err.Error())
	}
	if got := rec.states(); !reflect.DeepEqual(got, []State{StateFailed}) {
		t.Errorf("states = %v, want [Failed]", got)
	}
}

func TestDispatch_LiteralOnly(t *testing.T) {
	content := "---\ndescription: x\n---\nJust text.\n\n```sh\n!not a script\n```\n"
	d := newDispatcher(t, registryOf(t, "lit", content), t.TempDir(), nil)

	tr, err := d.Invoke(context.Background(), "lit", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	want := "Just text.\n\n```sh\n!not a script\n```\n"
	if tr.Text != want {
		t.Errorf("Text = %q, want %q", tr.Text, want)
	}
}

func TestDispatch_Cancelled(t *testing.T) {
	skipOnWindows(t)
	root := pluginRoot(t, "sleep 30", true)
	d := newDispatcher(t, builtinRegistry(t), root, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	_, err := d.Invoke(ctx, "start", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if KindOf(err) != KindOther {
		t.Errorf("KindOf = %v, want Other", KindOf(err))
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without registry")
	}
	if _, err := New(Options{Registry: registry.New(), OnScriptFailure: "retry"}); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantArgs []string
	}{
		{"/start", "start", []string{}},
		{"start", "start", []string{}},
		{"  /worlds:create  \"Middle Earth\" fast ", "worlds:create", []string{"Middle Earth", "fast"}},
		{"", "", nil},
	}
	for _, tt := range tests {
		name, args, err := ParseLine(tt.line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", tt.line, err)
		}
		if name != tt.wantName {
			t.Errorf("ParseLine(%q) name = %q, want %q", tt.line, name, tt.wantName)
		}
		if len(args) != len(tt.wantArgs) || (len(args) > 0 && !reflect.DeepEqual(args, tt.wantArgs)) {
			t.Errorf("ParseLine(%q) args = %q, want %q", tt.line, args, tt.wantArgs)
		}
	}
}
