// Package tools names the capabilities a command body may exercise and parses
// a command's allowed-tools whitelist into a Permission set that the
// dispatcher checks before anything runs.
package tools
