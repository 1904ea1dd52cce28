// Package resolve substitutes ${NAME} placeholders in command templates.
// Resolution is a single textual pass: a substituted value is never scanned
// again, and an unbound placeholder is always an error.
package resolve

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// UnresolvedVariableError reports a placeholder with no bound value.
type UnresolvedVariableError struct {
	Name string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("unresolved variable ${%s}", e.Name)
}

// Vars maps placeholder names to values.
type Vars map[string]string

// Merge returns a new Vars holding v overlaid by each layer in turn; later
// layers win.
func (v Vars) Merge(layers ...map[string]string) Vars {
	out := make(Vars, len(v))
	maps.Copy(out, v)
	for _, l := range layers {
		maps.Copy(out, l)
	}
	return out
}

// Keys returns the variable names, sorted.
func (v Vars) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve replaces every ${NAME} in template with vars[NAME]. "$${" yields a
// literal "${". A lone "$" not followed by "{" is copied as-is.
func Resolve(template string, vars Vars) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		c := template[i]
		if c != '$' {
			b.WriteByte(c)
			i++
			continue
		}
		rest := template[i:]
		switch {
		case strings.HasPrefix(rest, "$${"):
			b.WriteString("${")
			i += 3
		case strings.HasPrefix(rest, "${"):
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				return "", &UnresolvedVariableError{Name: rest[2:]}
			}
			name := rest[2:end]
			val, ok := vars[name]
			if !ok || !ValidName(name) {
				return "", &UnresolvedVariableError{Name: name}
			}
			b.WriteString(val)
			i += end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// ResolveAll resolves each template in order and stops at the first error.
func ResolveAll(templates []string, vars Vars) ([]string, error) {
	out := make([]string, len(templates))
	for i, t := range templates {
		r, err := Resolve(t, vars)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Placeholders lists the distinct placeholder names referenced by template,
// in order of first appearance. Escaped "$${" sequences are skipped. Names
// that can never resolve, such as "${A-B}", are reported too.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for i := 0; i < len(template); i++ {
		rest := template[i:]
		if strings.HasPrefix(rest, "$${") {
			i += 2
			continue
		}
		if !strings.HasPrefix(rest, "${") {
			continue
		}
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			break
		}
		name := rest[2:end]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		i += end
	}
	return names
}

// ValidName accepts identifiers ([A-Za-z_][A-Za-z0-9_]*) and positional
// numbers.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	digits := true
	for i := 0; i < len(name); i++ {
		c := name[i]
		isDigit := c >= '0' && c <= '9'
		isAlpha := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !isDigit && !isAlpha {
			return false
		}
		if !isDigit {
			digits = false
		}
	}
	if digits {
		return true
	}
	return !(name[0] >= '0' && name[0] <= '9')
}
