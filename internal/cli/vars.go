package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/agentx-labs/cortex/internal/userdata"
	"github.com/spf13/cobra"
)

var (
	varsJSON   bool
	varsReveal bool
)

var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "Show the variables commands resolve against",
	Long: `Show the effective ${VAR} bindings and which layer each comes from.
Layers, lowest precedence first: builtin, env file, config, --var.
Values whose names look secret are redacted unless --reveal is given.`,
	Args: cobra.NoArgs,
	RunE: runVars,
}

func init() {
	varsCmd.Flags().BoolVar(&varsJSON, "json", false, "Output in JSON format")
	varsCmd.Flags().BoolVar(&varsReveal, "reveal", false, "Print secret values unredacted")
	rootCmd.AddCommand(varsCmd)
}

type varEntry struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

func runVars(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}

	var entries []varEntry
	for _, name := range sess.Vars.Keys() {
		value := sess.Vars[name]
		if !varsReveal {
			value = userdata.RedactValue(name, value)
		}
		entries = append(entries, varEntry{Name: name, Value: value, Source: varSource(sess, name)})
	}

	if varsJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tVALUE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Source, e.Value)
	}
	return w.Flush()
}

// varSource names the highest-precedence layer that binds name.
func varSource(sess *session, name string) string {
	l := sess.Layers
	if _, ok := l.Flags[name]; ok {
		return "flag"
	}
	if _, ok := l.Config[name]; ok {
		return "config"
	}
	if _, ok := l.EnvFile[name]; ok {
		return "env-file"
	}
	return "builtin"
}
