// Package runtime runs the bootstrap scripts named by command definitions.
// A Runner starts one child process per call, in the install root, with the
// resolved variables exported into its environment. It captures stdout and
// stderr, and classifies the outcome as success, ScriptFailedError,
// ScriptUnavailableError, or ScriptTimeoutError.
package runtime
