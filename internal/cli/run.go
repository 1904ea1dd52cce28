package cli

import (
	"fmt"
	"time"

	"github.com/agentx-labs/cortex/internal/dispatch"
	"github.com/agentx-labs/cortex/internal/log"
	"github.com/agentx-labs/cortex/internal/reference"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	runTimeout         time.Duration
	runOnScriptFailure string
	runQuietScripts    bool
)

var runCmd = &cobra.Command{
	Use:   "run <command> [args...]",
	Short: "Run a command and print its transcript",
	Long: `Dispatch a registered command.

The command's allowed-tools whitelist is checked and every ${VAR}
placeholder resolved before anything runs. Bootstrap scripts then run in
order from the plugin root, reference documents are loaded, and the ready
transcript is printed to stdout. Script stderr is streamed to stderr.

Arguments after the command name bind ${ARGUMENTS} and ${1}..${n}.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd, args[0], args[1:])
	},
}

func init() {
	addRunFlags(runCmd)
	runCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-script timeout (default: config timeout)")
	cmd.Flags().StringVar(&runOnScriptFailure, "on-script-failure", "", "Failure policy for commands that set none: abort or continue")
	cmd.Flags().BoolVar(&runQuietScripts, "quiet-scripts", false, "Do not stream script stderr")
}

// invoke dispatches name with args and prints the transcript.
func invoke(cmd *cobra.Command, name string, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	reg, err := sess.Registry()
	if err != nil {
		return err
	}

	loader, err := reference.NewLoader(reference.Options{Dir: sess.Root, Cache: settings.CacheReferences})
	if err != nil {
		return err
	}

	timeout := settings.Timeout
	if runTimeout > 0 {
		timeout = runTimeout
	}
	policy := settings.OnScriptFailure
	if runOnScriptFailure != "" {
		policy = runOnScriptFailure
	}

	opts := dispatch.Options{
		Registry:        reg,
		Root:            sess.Root,
		Vars:            sess.Vars,
		Loader:          loader,
		Timeout:         timeout,
		OnScriptFailure: policy,
		Logger:          log.For("dispatch"),
	}
	if !runQuietScripts {
		opts.ScriptStderr = cmd.ErrOrStderr()
	}
	opts.Observer = func(tr dispatch.Transition) {
		entry := log.For("dispatch").WithFields(logrus.Fields{
			"command": tr.Command,
			"from":    tr.From.String(),
			"to":      tr.To.String(),
		})
		if tr.To.Terminal() {
			entry.Info("invocation finished")
			return
		}
		entry.Trace("transition")
	}

	d, err := dispatch.New(opts)
	if err != nil {
		return err
	}

	transcript, err := d.Invoke(cmd.Context(), name, args)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), transcript.Text)
	return err
}
