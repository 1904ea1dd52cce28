package manifest

import (
	"strings"

	"github.com/agentx-labs/cortex/internal/tools"
	"go.yaml.in/yaml/v3"
)

// SectionKind discriminates the three kinds of body section.
type SectionKind int

const (
	KindLiteral SectionKind = iota
	KindScript
	KindReference
)

func (k SectionKind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindScript:
		return "script"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Tool returns the capability a section of this kind exercises. Literal text
// needs none.
func (k SectionKind) Tool() tools.ToolName {
	switch k {
	case KindScript:
		return tools.Bash
	case KindReference:
		return tools.Read
	default:
		return ""
	}
}

// Section is one unit of a command body.
type Section struct {
	Kind SectionKind
	// Text is the literal text, the raw script line, or the reference path
	// template, depending on Kind.
	Text string
	// Argv holds the shell-split script line (executable first). Each
	// element is still an unresolved template. Only set for scripts.
	Argv []string
	// Line is the 1-based line in the source file where the section starts.
	Line int
	// BestEffort marks a script whose failure does not abort the command.
	BestEffort bool
}

// Frontmatter is the YAML block at the top of a command file.
type Frontmatter struct {
	Name            string     `yaml:"name,omitempty" json:"name,omitempty"`
	Description     string     `yaml:"description" json:"description"`
	AllowedTools    StringList `yaml:"allowed-tools,omitempty" json:"allowed-tools,omitempty"`
	ArgumentHint    string     `yaml:"argument-hint,omitempty" json:"argument-hint,omitempty"`
	Requires        string     `yaml:"requires,omitempty" json:"requires,omitempty"`
	OnScriptFailure string     `yaml:"on-script-failure,omitempty" json:"on-script-failure,omitempty"`
	Model           string     `yaml:"model,omitempty" json:"model,omitempty"`
}

// Command is a parsed command definition. It is treated as immutable once
// handed to the registry.
type Command struct {
	Name            string
	Description     string
	AllowedTools    []string
	Permission      tools.Permission
	ArgumentHint    string
	Requires        string
	OnScriptFailure string
	Sections        []Section
	// Source names where the definition came from ("builtin", "user", ...).
	Source string
	// Path is the file the definition was read from.
	Path string
}

// SectionsOf returns the sections of the given kind, in declared order.
func (c *Command) SectionsOf(kind SectionKind) []Section {
	var out []Section
	for _, s := range c.Sections {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Failure policy values for on-script-failure.
const (
	PolicyAbort    = "abort"
	PolicyContinue = "continue"
)

// StringList accepts either a YAML sequence or a comma-separated scalar, so
// both `allowed-tools: [Read, Bash]` and `allowed-tools: Read, Bash` work.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
	default:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = splitTopLevel(s)
	}
	return nil
}

// splitTopLevel splits on commas that are not inside parentheses, so a
// pattern such as Bash(echo a, b) stays one entry.
func splitTopLevel(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				if part := strings.TrimSpace(s[start:i]); part != "" {
					out = append(out, part)
				}
				start = i + 1
			}
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		out = append(out, part)
	}
	return out
}
