package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/agentx-labs/cortex/internal/manifest"
)

// Lookuper is the read side of the registry.
type Lookuper interface {
	Lookup(name string) (*manifest.Command, error)
}

// Registry maps command names to definitions.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*manifest.Command
	sealed   bool
}

var _ Lookuper = (*Registry)(nil)

// New creates an empty registry.
func New() *Registry {
	return &Registry{commands: make(map[string]*manifest.Command)}
}

// Register adds cmd under cmd.Name.
func (r *Registry) Register(cmd *manifest.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}
	if existing, ok := r.commands[cmd.Name]; ok {
		return &DuplicateCommandError{Name: cmd.Name, Existing: existing.Path, Path: cmd.Path}
	}
	r.commands[cmd.Name] = cmd
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Lookup returns the definition registered under name. A leading "/" is
// ignored.
func (r *Registry) Lookup(name string) (*manifest.Command, error) {
	name = strings.TrimPrefix(name, "/")

	r.mu.RLock()
	defer r.mu.RUnlock()

	if cmd, ok := r.commands[name]; ok {
		return cmd, nil
	}
	return nil, &UnknownCommandError{Name: name, Suggestions: r.suggest(name)}
}

// List returns every definition sorted by name.
func (r *Registry) List() []*manifest.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*manifest.Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

const maxSuggestions = 3

// suggest returns registered names close to name: substring matches first,
// then names within a small edit distance. Callers hold r.mu.
func (r *Registry) suggest(name string) []string {
	if name == "" {
		return nil
	}
	type candidate struct {
		name string
		dist int
	}
	var cands []candidate
	threshold := max(2, len(name)/3)
	for n := range r.commands {
		switch {
		case strings.Contains(n, name) || strings.Contains(name, n):
			cands = append(cands, candidate{n, 0})
		default:
			if d := levenshtein(name, n); d <= threshold {
				cands = append(cands, candidate{n, d})
			}
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].name < cands[j].name
	})

	var out []string
	for i := 0; i < len(cands) && i < maxSuggestions; i++ {
		out = append(out, cands[i].name)
	}
	return out
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
