package registry

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/agentx-labs/cortex/internal/manifest"
	"github.com/agentx-labs/cortex/internal/version"
)

//go:embed builtin/*.md
var builtinFS embed.FS

// Source names used by the CLI.
const (
	SourceBuiltin = "builtin"
	SourceUser    = "user"
	SourceRoot    = "root"
	SourceProject = "project"
)

// Builtin returns the source holding the commands compiled into the binary.
func Builtin() Source {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(fmt.Sprintf("builtin commands: %v", err))
	}
	return Source{Name: SourceBuiltin, BasePath: SourceBuiltin, FS: sub}
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Version is the running CLI version, checked against each definition's
	// requires constraint.
	Version string
}

// LoadError describes a definition that could not be loaded.
type LoadError struct {
	Source string
	Path   string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load discovers, validates, and registers every definition in sources, in
// order, then seals the registry. Sources whose directory does not exist are
// skipped. All problems are collected; if any occurred the registry is still
// returned alongside the joined error so callers can report everything at
// once.
func Load(sources []Source, opts LoadOptions) (*Registry, error) {
	reg := New()
	var errs []error

	for _, src := range sources {
		files, err := walkSource(src)
		if err != nil {
			errs = append(errs, &LoadError{Source: src.Name, Path: src.BasePath, Err: err})
			continue
		}
		for _, f := range files {
			cmd, err := loadFile(src, f, opts)
			if err != nil {
				errs = append(errs, &LoadError{Source: src.Name, Path: displayPath(src, f), Err: err})
				continue
			}
			if err := reg.Register(cmd); err != nil {
				errs = append(errs, err)
			}
		}
	}

	reg.Seal()
	return reg, errors.Join(errs...)
}

// walkSource returns the slash-separated paths of every command file in src,
// in lexical order.
func walkSource(src Source) ([]string, error) {
	fsys := src.FS
	if fsys == nil {
		info, err := os.Stat(src.BasePath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", src.BasePath)
		}
		fsys = os.DirFS(src.BasePath)
	}

	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != "." && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if isCommandFile(name) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", src.BasePath, err)
	}
	return files, nil
}

// isCommandFile returns true for markdown files other than READMEs and
// hidden files.
func isCommandFile(name string) bool {
	if strings.HasPrefix(name, ".") || strings.EqualFold(name, "README.md") {
		return false
	}
	return path.Ext(name) == ".md"
}

func loadFile(src Source, rel string, opts LoadOptions) (*manifest.Command, error) {
	var (
		data []byte
		err  error
	)
	if src.FS != nil {
		data, err = fs.ReadFile(src.FS, rel)
	} else {
		data, err = os.ReadFile(filepath.Join(src.BasePath, filepath.FromSlash(rel)))
	}
	if err != nil {
		return nil, fmt.Errorf("reading command file: %w", err)
	}

	result, err := manifest.Validate(data)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &ValidationError{Issues: result.Issues}
	}

	cmd, err := manifest.Parse(data, manifest.NameFromPath(rel))
	if err != nil {
		return nil, err
	}
	cmd.Source = src.Name
	cmd.Path = displayPath(src, rel)

	if ok, err := version.Satisfies(opts.Version, cmd.Requires); err != nil {
		return nil, fmt.Errorf("checking requires: %w", err)
	} else if !ok {
		return nil, fmt.Errorf("requires cortex %s, running %s", cmd.Requires, opts.Version)
	}
	return cmd, nil
}

// CheckTools verifies that the allowed-tools whitelist names every tool the
// body uses. Command-line patterns can only be checked once placeholders are
// resolved, so they are left to the dispatcher.
func CheckTools(cmd *manifest.Command) error {
	for _, s := range cmd.Sections {
		tool := s.Kind.Tool()
		if tool == "" {
			continue
		}
		if err := cmd.Permission.Check(tool, ""); err != nil {
			return fmt.Errorf("line %d: %w", s.Line, err)
		}
	}
	return nil
}

func displayPath(src Source, rel string) string {
	if src.FS != nil {
		return src.BasePath + ":" + rel
	}
	return filepath.Join(src.BasePath, filepath.FromSlash(rel))
}

// ValidationError carries frontmatter schema issues for one file.
type ValidationError struct {
	Issues []manifest.ValidationIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		if i.Path != "" {
			parts = append(parts, i.Path+": "+i.Message)
		} else {
			parts = append(parts, i.Message)
		}
	}
	return "invalid frontmatter: " + strings.Join(parts, "; ")
}
