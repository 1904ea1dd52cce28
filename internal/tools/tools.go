package tools

import (
	"fmt"
	"sort"
	"strings"
)

// ToolName identifies a capability a command section may use.
type ToolName string

const (
	Read  ToolName = "Read"
	Write ToolName = "Write"
	Edit  ToolName = "Edit"
	Bash  ToolName = "Bash"
	Glob  ToolName = "Glob"
	Grep  ToolName = "Grep"
)

// AllTools returns all known tool names.
func AllTools() []ToolName {
	return []ToolName{Read, Write, Edit, Bash, Glob, Grep}
}

// ParseToolName converts a string to a ToolName, returning false if invalid.
// Matching is exact; "bash" is not "Bash".
func ParseToolName(s string) (ToolName, bool) {
	for _, t := range AllTools() {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Rule is one allowed-tools entry. An empty Pattern grants the whole tool;
// otherwise the tool is limited to commands matching Pattern.
type Rule struct {
	Tool    ToolName
	Pattern string
}

func (r Rule) String() string {
	if r.Pattern == "" {
		return string(r.Tool)
	}
	return fmt.Sprintf("%s(%s)", r.Tool, r.Pattern)
}

// ParseRule parses "Bash", "Bash(git:*)" or "Bash(./scripts/bootstrap.sh)".
func ParseRule(s string) (Rule, error) {
	s = strings.TrimSpace(s)
	name, pattern := s, ""
	if i := strings.IndexByte(s, '('); i >= 0 {
		if !strings.HasSuffix(s, ")") {
			return Rule{}, fmt.Errorf("malformed tool rule %q: missing closing parenthesis", s)
		}
		name = s[:i]
		pattern = strings.TrimSpace(s[i+1 : len(s)-1])
		if pattern == "" {
			return Rule{}, fmt.Errorf("malformed tool rule %q: empty pattern", s)
		}
	}
	tool, ok := ParseToolName(name)
	if !ok {
		return Rule{}, fmt.Errorf("unknown tool %q", name)
	}
	return Rule{Tool: tool, Pattern: pattern}, nil
}

// Permission is the parsed allowed-tools whitelist of one command.
type Permission struct {
	rules []Rule
}

// ParsePermission parses every entry of an allowed-tools list.
func ParsePermission(entries []string) (Permission, error) {
	var p Permission
	for _, e := range entries {
		r, err := ParseRule(e)
		if err != nil {
			return Permission{}, err
		}
		p.rules = append(p.rules, r)
	}
	return p, nil
}

// Rules returns the parsed rules in declaration order.
func (p Permission) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// AllowsTool reports whether any rule grants tool, with or without a pattern.
func (p Permission) AllowsTool(tool ToolName) bool {
	for _, r := range p.rules {
		if r.Tool == tool {
			return true
		}
	}
	return false
}

// Allows reports whether tool may run commandLine. A rule without a pattern
// grants every command; "prefix:*" matches commands starting with prefix;
// any other pattern must equal the command line exactly.
func (p Permission) Allows(tool ToolName, commandLine string) bool {
	for _, r := range p.rules {
		if r.Tool != tool {
			continue
		}
		if r.Pattern == "" || matchPattern(r.Pattern, commandLine) {
			return true
		}
	}
	return false
}

// Names returns the distinct tool names granted, sorted.
func (p Permission) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range p.rules {
		if !seen[string(r.Tool)] {
			seen[string(r.Tool)] = true
			names = append(names, string(r.Tool))
		}
	}
	sort.Strings(names)
	return names
}

func matchPattern(pattern, commandLine string) bool {
	commandLine = strings.TrimSpace(commandLine)
	if prefix, ok := strings.CutSuffix(pattern, ":*"); ok {
		return strings.HasPrefix(commandLine, prefix)
	}
	return commandLine == pattern
}

// ToolNotAllowedError reports a section that needs a tool, or a command line,
// the whitelist does not grant.
type ToolNotAllowedError struct {
	Tool ToolName
	// CommandLine is set when the tool is granted but no pattern matches.
	CommandLine string
}

func (e *ToolNotAllowedError) Error() string {
	if e.CommandLine != "" {
		return fmt.Sprintf("tool %s not allowed to run %q", e.Tool, e.CommandLine)
	}
	return fmt.Sprintf("tool %s not in allowed-tools", e.Tool)
}

// Check returns a *ToolNotAllowedError unless p grants tool. When
// commandLine is non-empty it must also match one of the tool's patterns.
func (p Permission) Check(tool ToolName, commandLine string) error {
	if !p.AllowsTool(tool) {
		return &ToolNotAllowedError{Tool: tool}
	}
	if commandLine != "" && !p.Allows(tool, commandLine) {
		return &ToolNotAllowedError{Tool: tool, CommandLine: commandLine}
	}
	return nil
}
