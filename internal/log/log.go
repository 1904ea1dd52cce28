// Package log configures the process-wide logrus logger. Diagnostics go to
// stderr so they never mix with a command transcript on stdout.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options configures the logger.
type Options struct {
	// Level is a logrus level name ("debug", "info", "warn", ...).
	Level string
	// JSON switches the formatter from text to JSON.
	JSON bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Init applies opts to the standard logrus logger. An unknown level is
// reported and the logger falls back to warn.
func Init(opts Options) error {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	logrus.SetOutput(out)

	if opts.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}

	if opts.Level == "" {
		logrus.SetLevel(logrus.WarnLevel)
		return nil
	}
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		logrus.SetLevel(logrus.WarnLevel)
		return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	logrus.SetLevel(level)
	return nil
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}
