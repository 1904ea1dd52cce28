package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/agentx-labs/cortex/internal/manifest"
	"github.com/agentx-labs/cortex/internal/registry"
	"github.com/agentx-labs/cortex/internal/resolve"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate command definitions",
	Long: `Validate command files: frontmatter schema, allowed-tools coverage, and
placeholders with no binding in the current variables.

With no arguments every discovered source is validated, including
duplicate names across sources.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	var problems int
	if len(args) == 0 {
		problems = validateSources(out, sess)
	} else {
		for _, path := range args {
			problems += validateFile(out, sess, path)
		}
	}

	if problems > 0 {
		return fmt.Errorf("%d problem(s) found", problems)
	}
	fmt.Fprintln(out, "All commands valid.")
	return nil
}

func validateSources(out io.Writer, sess *session) int {
	reg, err := registry.Load(sess.Sources(), registry.LoadOptions{Version: buildVersion})
	problems := 0
	if err != nil {
		for _, e := range flatten(err) {
			fmt.Fprintf(out, "✗ %v\n", e)
			problems++
		}
	}
	for _, c := range reg.List() {
		problems += reportCommand(out, sess, c)
	}
	return problems
}

func validateFile(out io.Writer, sess *session, path string) int {
	result, err := manifest.ValidateFile(path)
	if err != nil {
		fmt.Fprintf(out, "✗ %s: %v\n", path, err)
		return 1
	}
	if !result.Valid {
		for _, issue := range result.Issues {
			loc := issue.Path
			if loc == "" {
				loc = "(root)"
			}
			fmt.Fprintf(out, "✗ %s: %s: %s\n", path, loc, issue.Message)
		}
		return len(result.Issues)
	}

	c, err := manifest.ParseFile(path, filepath.Base(path))
	if err != nil {
		fmt.Fprintf(out, "✗ %v\n", err)
		return 1
	}
	return reportCommand(out, sess, c)
}

// reportCommand checks tool coverage and unbound placeholders for one parsed
// command and prints its status line.
func reportCommand(out io.Writer, sess *session, c *manifest.Command) int {
	problems := 0
	if err := registry.CheckTools(c); err != nil {
		fmt.Fprintf(out, "✗ %s: %v\n", c.Path, err)
		problems++
	}
	for _, name := range placeholdersOf(c) {
		if isArgumentVar(name) {
			continue
		}
		if _, ok := sess.Vars[name]; !ok || !resolve.ValidName(name) {
			fmt.Fprintf(out, "✗ %s: %v\n", c.Path, &resolve.UnresolvedVariableError{Name: name})
			problems++
		}
	}
	if problems == 0 {
		fmt.Fprintf(out, "✓ /%s (%s)\n", c.Name, c.Path)
	}
	return problems
}

// isArgumentVar reports names bound only at invocation time.
func isArgumentVar(name string) bool {
	if name == resolve.VarArguments {
		return true
	}
	_, err := strconv.Atoi(name)
	return err == nil
}
