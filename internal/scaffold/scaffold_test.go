package scaffold

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/agentx-labs/cortex/internal/manifest"
)

func TestNewScaffoldData(t *testing.T) {
	t.Run("script and reference", func(t *testing.T) {
		d, err := NewScaffoldData("worlds:create", Options{WithScript: true, Reference: "CORTEX.md"})
		if err != nil {
			t.Fatal(err)
		}
		if d.Title != "Worlds create" {
			t.Errorf("Title = %q", d.Title)
		}
		if d.Script != "scripts/worlds-create.sh" {
			t.Errorf("Script = %q", d.Script)
		}
		if strings.Join(d.Tools, ",") != "Bash,Read" {
			t.Errorf("Tools = %v", d.Tools)
		}
		if d.Description != "Cortex command: worlds:create" {
			t.Errorf("Description = %q", d.Description)
		}
	})

	t.Run("literal only", func(t *testing.T) {
		d, err := NewScaffoldData("hello", Options{Description: "Say hi"})
		if err != nil {
			t.Fatal(err)
		}
		if len(d.Tools) != 0 || d.Script != "" {
			t.Errorf("Tools = %v, Script = %q; want none", d.Tools, d.Script)
		}
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", "Hello", "a b", "-x", "a::b", "../escape"} {
			if _, err := NewScaffoldData(name, Options{}); err == nil {
				t.Errorf("NewScaffoldData(%q) expected error", name)
			}
		}
	})
}

func TestCommandPath(t *testing.T) {
	got := CommandPath("/cmds", "worlds:create")
	if want := filepath.Join("/cmds", "worlds", "create.md"); got != want {
		t.Errorf("CommandPath = %q, want %q", got, want)
	}
}

func TestGenerate_Full(t *testing.T) {
	root := t.TempDir()
	cmds := filepath.Join(root, "commands")

	data, err := NewScaffoldData("create-world", Options{
		Description:  "Create a world: the fun part",
		ArgumentHint: "[world-name]",
		Requires:     ">= 0.1.0",
		WithScript:   true,
		Reference:    "CORTEX.md",
	})
	if err != nil {
		t.Fatal(err)
	}
	result, err := Generate(data, cmds, root)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %v", result.Warnings)
	}

	content, err := os.ReadFile(result.CommandFile)
	if err != nil {
		t.Fatal(err)
	}
	cmd, err := manifest.Parse(content, "create-world")
	if err != nil {
		t.Fatalf("generated command does not parse: %v\n%s", err, content)
	}
	if cmd.Description != "Create a world: the fun part" {
		t.Errorf("Description = %q", cmd.Description)
	}
	if cmd.ArgumentHint != "[world-name]" || cmd.Requires != ">= 0.1.0" {
		t.Errorf("ArgumentHint = %q, Requires = %q", cmd.ArgumentHint, cmd.Requires)
	}
	scripts := cmd.SectionsOf(manifest.KindScript)
	if len(scripts) != 1 || scripts[0].Argv[0] != "${PLUGIN_ROOT}/scripts/create-world.sh" {
		t.Errorf("scripts = %+v", scripts)
	}
	refs := cmd.SectionsOf(manifest.KindReference)
	if len(refs) != 1 || refs[0].Text != "${PLUGIN_ROOT}/CORTEX.md" {
		t.Errorf("refs = %+v", refs)
	}
	if lits := cmd.SectionsOf(manifest.KindLiteral); len(lits) != 1 || lits[0].Text != "Create-world is ready." {
		t.Errorf("literals = %+v", lits)
	}

	info, err := os.Stat(result.ScriptFile)
	if err != nil {
		t.Fatalf("script not written: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0100 == 0 {
		t.Errorf("script mode = %v, want executable", info.Mode())
	}
}

func TestGenerate_LiteralOnly(t *testing.T) {
	root := t.TempDir()
	data, err := NewScaffoldData("hello", Options{})
	if err != nil {
		t.Fatal(err)
	}
	result, err := Generate(data, root, root)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if result.ScriptFile != "" {
		t.Errorf("ScriptFile = %q, want empty", result.ScriptFile)
	}
	res, err := manifest.ValidateFile(result.CommandFile)
	if err != nil || !res.Valid {
		t.Errorf("generated file invalid: %v %+v", err, res)
	}
}

func TestGenerate_NoOverwrite(t *testing.T) {
	root := t.TempDir()
	data, _ := NewScaffoldData("hello", Options{})
	if _, err := Generate(data, root, root); err != nil {
		t.Fatal(err)
	}
	_, err := Generate(data, root, root)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second Generate err = %v, want already exists", err)
	}
}
