package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/command.schema.json
var schemaBytes []byte

var (
	schemaOnce sync.Once
	cmdSchema  *jsonschema.Schema
	schemaErr  error
	printer    = message.NewPrinter(language.English)
)

// ValidationResult is the outcome of checking frontmatter against the
// command schema.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
}

// ValidationIssue is one frontmatter problem. Path is a JSON pointer into the
// frontmatter ("/allowed-tools/0"); Keyword is the failing schema keyword.
type ValidationIssue struct {
	Path    string
	Message string
	Keyword string
}

// ValidateFrontmatter checks raw frontmatter YAML against the command schema.
// Schema violations are reported in the result; the error is reserved for
// unparseable YAML.
func ValidateFrontmatter(data []byte) (*ValidationResult, error) {
	schema, err := frontmatterSchema()
	if err != nil {
		return nil, err
	}

	var fields any
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parsing frontmatter: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	// The validator only understands JSON value types.
	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding frontmatter: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return &ValidationResult{Valid: true}, nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, fmt.Errorf("validating frontmatter: %w", err)
	}
	return &ValidationResult{Issues: issuesOf(verr)}, nil
}

// Validate splits the frontmatter off a whole command file and validates it.
// A file without frontmatter is valid.
func Validate(data []byte) (*ValidationResult, error) {
	fm, _, _, err := SplitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	if fm == nil {
		return &ValidationResult{Valid: true}, nil
	}
	return ValidateFrontmatter(fm)
}

// ValidateFile reads a command file and validates its frontmatter.
func ValidateFile(path string) (*ValidationResult, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Validate(data)
}

// frontmatterSchema compiles the embedded command schema on first use.
func frontmatterSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			schemaErr = fmt.Errorf("reading command schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("command.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("registering command schema: %w", err)
			return
		}
		if cmdSchema, err = c.Compile("command.schema.json"); err != nil {
			schemaErr = fmt.Errorf("compiling command schema: %w", err)
		}
	})
	return cmdSchema, schemaErr
}

// issuesOf flattens a validation error into one issue per failing frontmatter
// key, dropping combinator wrappers and repeats.
func issuesOf(verr *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	seen := make(map[ValidationIssue]bool)

	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		for _, cause := range e.Causes {
			walk(cause)
		}
		if len(e.Causes) > 0 || e.ErrorKind == nil {
			return
		}
		kw := e.ErrorKind.KeywordPath()
		if len(kw) == 0 {
			return
		}
		issue := ValidationIssue{Keyword: kw[len(kw)-1], Message: e.ErrorKind.LocalizedString(printer)}
		switch issue.Keyword {
		case "oneOf", "anyOf", "allOf", "$ref":
			return
		}
		if len(e.InstanceLocation) > 0 {
			issue.Path = "/" + strings.Join(e.InstanceLocation, "/")
		}
		if !seen[issue] {
			seen[issue] = true
			issues = append(issues, issue)
		}
	}
	walk(verr)

	if len(issues) == 0 {
		issues = append(issues, ValidationIssue{Message: verr.Error()})
	}
	return issues
}
