// Package scaffold generates new command definitions from embedded
// templates. It powers "cortex new", writing a command file and, optionally,
// a matching bootstrap script, then validating the result.
package scaffold
