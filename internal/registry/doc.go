// Package registry holds the set of command definitions a cortex invocation
// can dispatch to. Definitions are discovered from sources (the embedded
// built-ins, the user's commands directory, a project's .cortex/commands),
// validated, and registered under unique names. Once Load returns, the
// registry is sealed and read-only.
package registry
