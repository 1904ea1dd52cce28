package cli

import (
	"fmt"
	"strings"

	"github.com/agentx-labs/cortex/internal/manifest"
	"github.com/agentx-labs/cortex/internal/resolve"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <command>",
	Short: "Show a command definition and its sections",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	reg, err := sess.Registry()
	if err != nil {
		return err
	}
	c, err := reg.Lookup(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:          /%s\n", c.Name)
	fmt.Fprintf(out, "Description:   %s\n", orDash(c.Description))
	fmt.Fprintf(out, "Source:        %s (%s)\n", c.Source, c.Path)
	fmt.Fprintf(out, "Allowed tools: %s\n", orDash(strings.Join(c.AllowedTools, ", ")))
	if c.ArgumentHint != "" {
		fmt.Fprintf(out, "Arguments:     %s\n", c.ArgumentHint)
	}
	if c.Requires != "" {
		fmt.Fprintf(out, "Requires:      %s\n", c.Requires)
	}
	if c.OnScriptFailure != "" {
		fmt.Fprintf(out, "On failure:    %s\n", c.OnScriptFailure)
	}

	fmt.Fprintln(out, "\nSections:")
	for _, s := range c.Sections {
		fmt.Fprintf(out, "  %4d  %-9s  %s\n", s.Line, sectionLabel(s), firstLine(s.Text))
	}

	if names := placeholdersOf(c); len(names) > 0 {
		fmt.Fprintf(out, "\nVariables:     %s\n", strings.Join(names, ", "))
	}
	return nil
}

func sectionLabel(s manifest.Section) string {
	if s.BestEffort {
		return s.Kind.String() + "?"
	}
	return s.Kind.String()
}

// placeholdersOf lists the distinct placeholders a command references.
func placeholdersOf(c *manifest.Command) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range c.Sections {
		texts := []string{s.Text}
		if s.Kind == manifest.KindScript {
			texts = s.Argv
		}
		for _, t := range texts {
			for _, n := range resolve.Placeholders(t) {
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
			}
		}
	}
	return names
}

func firstLine(s string) string {
	line, rest, _ := strings.Cut(s, "\n")
	if rest != "" {
		return line + " …"
	}
	return line
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
