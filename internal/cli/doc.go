// Package cli defines the Cobra command tree for the cortex CLI. Each file
// in this package registers one top-level command (run, list, validate, etc.)
// with the root command. Command implementations delegate to internal packages
// for the dispatch logic and only handle flag parsing, I/O formatting, and
// assembling the session (settings, root, variables, registry) a command needs.
package cli
