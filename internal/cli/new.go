package cli

import (
	"fmt"

	"github.com/agentx-labs/cortex/internal/scaffold"
	"github.com/agentx-labs/cortex/internal/userdata"
	"github.com/spf13/cobra"
)

var (
	newDescription  string
	newArgumentHint string
	newRequires     string
	newWithScript   bool
	newReference    string
	newProject      bool
	newDir          string
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Scaffold a new command definition",
	Long: `Create a command file from a template.

The file goes to ~/.cortex/commands by default, to ./.cortex/commands with
--project, or to --dir. A name like "worlds:create" becomes worlds/create.md.
With --script a bootstrap script is also written under <root>/scripts/.

Examples:
  cortex new create-agent --script --reference CORTEX.md
  cortex new worlds:create --project --argument-hint "[world-name]"`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	newCmd.Flags().StringVarP(&newDescription, "description", "d", "", "Command description")
	newCmd.Flags().StringVar(&newArgumentHint, "argument-hint", "", "Argument hint shown in listings")
	newCmd.Flags().StringVar(&newRequires, "requires", "", "Required cortex version constraint, e.g. \">= 0.2.0\"")
	newCmd.Flags().BoolVar(&newWithScript, "script", false, "Also create a bootstrap script under <root>/scripts")
	newCmd.Flags().StringVar(&newReference, "reference", "", "Root-relative document to include with an @ line")
	newCmd.Flags().BoolVar(&newProject, "project", false, "Write to ./.cortex/commands")
	newCmd.Flags().StringVar(&newDir, "dir", "", "Write to this commands directory")
	newCmd.MarkFlagsMutuallyExclusive("project", "dir")
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}

	data, err := scaffold.NewScaffoldData(args[0], scaffold.Options{
		Description:  newDescription,
		ArgumentHint: newArgumentHint,
		Requires:     newRequires,
		WithScript:   newWithScript,
		Reference:    newReference,
	})
	if err != nil {
		return err
	}

	dir := newDir
	switch {
	case dir != "":
	case newProject:
		dir = userdata.ProjectCommandsDir(sess.CWD)
	case settings.CommandsDir != "":
		dir = settings.CommandsDir
	default:
		dir = userdata.UserCommandsDir()
	}

	result, err := scaffold.Generate(data, dir, sess.Root)
	if err != nil {
		return fmt.Errorf("scaffolding %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", result.CommandFile)
	if result.ScriptFile != "" {
		fmt.Fprintf(out, "Created %s\n", result.ScriptFile)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	return nil
}
