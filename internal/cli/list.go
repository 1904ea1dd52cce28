package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/agentx-labs/cortex/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	listSource string
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered commands",
	Long:  `List every command discovered from the built-ins, the plugin root, ~/.cortex/commands, and ./.cortex/commands.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listSource, "source", "", "Filter by source (builtin, root, user, project)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry represents a registered command for display.
type listEntry struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	ArgumentHint string   `json:"argument_hint,omitempty"`
	AllowedTools []string `json:"allowed_tools"`
	Source       string   `json:"source"`
	Path         string   `json:"path"`
}

func runList(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	reg, err := sess.Registry()
	if err != nil {
		return err
	}

	var entries []listEntry
	for _, c := range reg.List() {
		if listSource != "" && c.Source != listSource {
			continue
		}
		entries = append(entries, newListEntry(c))
	}

	if listJSON {
		return printListJSON(cmd, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No commands found.")
		return nil
	}
	return printListTable(cmd, entries)
}

func newListEntry(c *manifest.Command) listEntry {
	tools := c.AllowedTools
	if tools == nil {
		tools = []string{}
	}
	return listEntry{
		Name:         c.Name,
		Description:  c.Description,
		ArgumentHint: c.ArgumentHint,
		AllowedTools: tools,
		Source:       c.Source,
		Path:         c.Path,
	}
}

func printListTable(cmd *cobra.Command, entries []listEntry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "COMMAND\tSOURCE\tTOOLS\tDESCRIPTION")
	for _, e := range entries {
		name := "/" + e.Name
		if e.ArgumentHint != "" {
			name += " " + e.ArgumentHint
		}
		tools := strings.Join(e.AllowedTools, ",")
		if tools == "" {
			tools = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, e.Source, tools, e.Description)
	}
	return w.Flush()
}

func printListJSON(cmd *cobra.Command, entries []listEntry) error {
	if entries == nil {
		entries = []listEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
