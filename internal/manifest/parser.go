package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentx-labs/cortex/internal/tools"
	"github.com/google/shlex"
	"go.yaml.in/yaml/v3"
)

const frontmatterDelim = "---"

// ParseFile reads a command file and parses it. The command name is derived
// from relPath ("frontend/component.md" → "frontend:component") unless the
// frontmatter overrides it.
func ParseFile(path, relPath string) (*Command, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cmd, err := Parse(data, NameFromPath(relPath))
	if err != nil {
		return nil, fmt.Errorf("parsing command %s: %w", path, err)
	}
	cmd.Path = path
	return cmd, nil
}

// Parse parses a command definition from raw bytes.
func Parse(data []byte, name string) (*Command, error) {
	fm, body, bodyLine, err := SplitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	var meta Frontmatter
	if len(fm) > 0 {
		if err := yaml.Unmarshal(fm, &meta); err != nil {
			return nil, fmt.Errorf("parsing frontmatter: %w", err)
		}
	}

	perm, err := tools.ParsePermission(meta.AllowedTools)
	if err != nil {
		return nil, fmt.Errorf("parsing allowed-tools: %w", err)
	}

	switch meta.OnScriptFailure {
	case "", PolicyAbort, PolicyContinue:
	default:
		return nil, fmt.Errorf("invalid on-script-failure %q: want %q or %q", meta.OnScriptFailure, PolicyAbort, PolicyContinue)
	}

	sections, err := ParseBody(body, bodyLine)
	if err != nil {
		return nil, err
	}

	if meta.Name != "" {
		name = meta.Name
	}
	if name == "" {
		return nil, fmt.Errorf("command has no name")
	}

	return &Command{
		Name:            name,
		Description:     meta.Description,
		AllowedTools:    []string(meta.AllowedTools),
		Permission:      perm,
		ArgumentHint:    meta.ArgumentHint,
		Requires:        meta.Requires,
		OnScriptFailure: meta.OnScriptFailure,
		Sections:        sections,
	}, nil
}

// SplitFrontmatter separates a leading "---" delimited YAML block from the
// body. It returns the frontmatter bytes (nil when absent), the body, and the
// 1-based line number on which the body starts.
func SplitFrontmatter(data []byte) (fm []byte, body string, bodyLine int, err error) {
	text := strings.ReplaceAll(string(bytes.TrimPrefix(data, []byte("\ufeff"))), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterDelim {
		return nil, text, 1, nil
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelim {
			fm = []byte(strings.Join(lines[1:i], "\n"))
			return fm, strings.Join(lines[i+1:], "\n"), i + 2, nil
		}
	}
	return nil, "", 0, fmt.Errorf("unterminated frontmatter: missing closing %q", frontmatterDelim)
}

// ParseBody splits a command body into sections. firstLine is the source
// line number of the first body line.
func ParseBody(body string, firstLine int) ([]Section, error) {
	var (
		sections []Section
		literal  []string
		litStart int
		fence    string
	)

	flush := func() {
		if len(literal) == 0 {
			return
		}
		text := strings.TrimRight(strings.Join(literal, "\n"), " \t\n")
		if text != "" {
			sections = append(sections, Section{Kind: KindLiteral, Text: text, Line: litStart})
		}
		literal = nil
	}
	addLiteral := func(line string, n int) {
		if len(literal) == 0 {
			if strings.TrimSpace(line) == "" {
				return
			}
			litStart = n
		}
		literal = append(literal, line)
	}

	for i, line := range strings.Split(body, "\n") {
		n := firstLine + i
		trimmed := strings.TrimSpace(line)

		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			addLiteral(line, n)
			continue
		}
		if f := fenceMarker(trimmed); f != "" {
			fence = f
			addLiteral(line, n)
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "!") && len(trimmed) > 1 && !strings.HasPrefix(trimmed, "!["):
			sec, err := parseScriptLine(trimmed, n)
			if err != nil {
				return nil, err
			}
			flush()
			sections = append(sections, sec)
		case strings.HasPrefix(trimmed, "@") && len(trimmed) > 1 && !strings.ContainsAny(trimmed[1:2], " \t"):
			flush()
			sections = append(sections, Section{Kind: KindReference, Text: trimmed[1:], Line: n})
		default:
			addLiteral(line, n)
		}
	}
	flush()
	return sections, nil
}

// parseScriptLine handles "!`cmd args`", "!cmd args" and the best-effort
// "!?" prefix.
func parseScriptLine(trimmed string, line int) (Section, error) {
	text := trimmed[1:]
	bestEffort := false
	if strings.HasPrefix(text, "?") {
		bestEffort = true
		text = text[1:]
	}
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "`") {
		if !strings.HasSuffix(text, "`") || len(text) < 2 {
			return Section{}, fmt.Errorf("line %d: unterminated backtick in script line", line)
		}
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	if text == "" {
		return Section{}, fmt.Errorf("line %d: empty script line", line)
	}
	argv, err := shlex.Split(text)
	if err != nil {
		return Section{}, fmt.Errorf("line %d: splitting script line: %w", line, err)
	}
	if len(argv) == 0 {
		return Section{}, fmt.Errorf("line %d: empty script line", line)
	}
	return Section{Kind: KindScript, Text: text, Argv: argv, Line: line, BestEffort: bestEffort}, nil
}

func fenceMarker(trimmed string) string {
	for _, f := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, f) {
			return f
		}
	}
	return ""
}

// NameFromPath derives a command name from a path relative to its source
// root: "start.md" → "start", "worlds/create.md" → "worlds:create".
func NameFromPath(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	relPath = strings.TrimSuffix(relPath, filepath.Ext(relPath))
	return strings.ReplaceAll(relPath, "/", ":")
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
