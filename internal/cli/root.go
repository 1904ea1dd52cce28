package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/agentx-labs/cortex/internal/branding"
	"github.com/agentx-labs/cortex/internal/config"
	"github.com/agentx-labs/cortex/internal/log"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

// Persistent flags shared by every command.
var (
	flagRoot     string
	flagVars     []string
	flagLogLevel string
	flagLogJSON  bool
)

// settings is populated by the root PersistentPreRunE.
var settings config.Settings

var rootCmd = &cobra.Command{
	Use:   branding.CLIName() + " [command] [args...]",
	Short: branding.Description(),
	Long: branding.DisplayName() + ` loads declarative slash-command definitions, checks their tool
whitelist, resolves ${VAR} placeholders, runs bootstrap scripts, loads
reference documents, and prints the resulting "ready" transcript.

Any argument that is not a built-in subcommand is treated as a command name,
so "` + branding.CLIName() + ` start" is shorthand for "` + branding.CLIName() + ` run start".`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		settings = config.Load()
		if flagRoot != "" {
			settings.Root = flagRoot
		}
		level := settings.LogLevel
		if flagLogLevel != "" {
			level = flagLogLevel
		}
		return log.Init(log.Options{
			Level:  level,
			JSON:   flagLogJSON || settings.LogFormat == "json",
			Output: cmd.ErrOrStderr(),
		})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return invoke(cmd, args[0], args[1:])
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagRoot, "root", "", "Plugin install root (default: config root, the binary's parent, or the working directory)")
	pf.StringArrayVar(&flagVars, "var", nil, "Bind a variable as KEY=VALUE (can be specified multiple times)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVar(&flagLogJSON, "log-json", false, "Emit logs as JSON")
	addRunFlags(rootCmd)
	// Flags after the command name belong to the command, as with run.
	rootCmd.Flags().SetInterspersed(false)
}

// Execute runs the root command with build info injected via ldflags.
// Errors are printed to stderr; the caller only needs the exit status.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
