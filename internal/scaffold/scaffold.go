package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/agentx-labs/cortex/internal/manifest"
	"github.com/agentx-labs/cortex/internal/platform"
	"github.com/agentx-labs/cortex/internal/userdata"
)

//go:embed scaffolds/*.tmpl
var scaffoldFS embed.FS

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*(:[a-z0-9][a-z0-9-]*)*$`)

// ScaffoldData holds all template variables available to scaffold templates.
type ScaffoldData struct {
	Name         string   // e.g. "worlds:create"
	Title        string   // Derived: "Worlds create"
	Description  string   // Human-readable description
	ArgumentHint string   // e.g. "[world-name]"
	Requires     string   // semver constraint, e.g. ">= 0.1.0"
	Tools        []string // Derived from Script and Reference
	Script       string   // root-relative script path, empty for none
	Reference    string   // root-relative reference path, empty for none
}

// Options selects what a scaffolded command does.
type Options struct {
	Description  string
	ArgumentHint string
	Requires     string
	// WithScript adds a bootstrap script under scripts/.
	WithScript bool
	// Reference adds an "@" line for this root-relative path.
	Reference string
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	CommandFile string
	ScriptFile  string
	Warnings    []string
}

// NewScaffoldData creates a ScaffoldData with derived fields populated.
func NewScaffoldData(name string, opts Options) (*ScaffoldData, error) {
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid command name %q: use lowercase letters, digits, '-' and ':' separators", name)
	}

	d := &ScaffoldData{
		Name:         name,
		Title:        title(name),
		Description:  opts.Description,
		ArgumentHint: opts.ArgumentHint,
		Requires:     opts.Requires,
		Reference:    filepath.ToSlash(opts.Reference),
	}
	if d.Description == "" {
		d.Description = fmt.Sprintf("Cortex command: %s", name)
	}
	if opts.WithScript {
		d.Script = filepath.ToSlash(filepath.Join("scripts", strings.ReplaceAll(name, ":", "-")+".sh"))
		d.Tools = append(d.Tools, "Bash")
	}
	if d.Reference != "" {
		d.Tools = append(d.Tools, "Read")
	}
	return d, nil
}

// CommandPath returns where a command named name lives under dir:
// "worlds:create" becomes dir/worlds/create.md.
func CommandPath(dir, name string) string {
	return filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(name, ":", "/"))+".md")
}

// Generate writes the command file under commandsDir and, when requested,
// its bootstrap script under root. Existing files are never overwritten.
func Generate(data *ScaffoldData, commandsDir, root string) (*Result, error) {
	result := &Result{CommandFile: CommandPath(commandsDir, data.Name)}

	content, err := render("command.md.tmpl", data)
	if err != nil {
		return nil, err
	}
	if err := writeNew(result.CommandFile, content, userdata.FilePermNormal); err != nil {
		return nil, err
	}

	if data.Script != "" {
		result.ScriptFile = filepath.Join(root, filepath.FromSlash(data.Script))
		script, err := render("script.sh.tmpl", data)
		if err != nil {
			return nil, err
		}
		if err := writeNew(result.ScriptFile, script, userdata.FilePermNormal); err != nil {
			return nil, err
		}
		if err := platform.Chmod(result.ScriptFile, 0755); err != nil {
			return nil, fmt.Errorf("making %s executable: %w", result.ScriptFile, err)
		}
	}

	// Validate the generated frontmatter against JSON Schema.
	valResult, valErr := manifest.ValidateFile(result.CommandFile)
	if valErr != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not validate command: %v", valErr))
	} else if !valResult.Valid {
		for _, issue := range valResult.Issues {
			msg := issue.Message
			if issue.Path != "" {
				msg = issue.Path + ": " + msg
			}
			result.Warnings = append(result.Warnings, msg)
		}
	}

	return result, nil
}

func render(name string, data *ScaffoldData) ([]byte, error) {
	tmplBytes, err := scaffoldFS.ReadFile("scaffolds/" + name)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", name, err)
	}
	tmpl, err := template.New(name).Funcs(template.FuncMap{"join": strings.Join}).Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func writeNew(path string, content []byte, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists; remove it first", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), userdata.DirPermNormal); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, perm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// title turns "worlds:create-agent" into "Worlds create-agent".
func title(name string) string {
	t := strings.ReplaceAll(name, ":", " ")
	if t == "" {
		return t
	}
	return strings.ToUpper(t[:1]) + t[1:]
}
