// Package dispatch drives one command invocation from a parsed command line
// to a rendered transcript.
//
// Each invocation walks a fixed sequence of states:
//
//	Parsed → ToolsChecked → Resolving → Running → Loading → Ready
//
// and drops to Failed on the first error. Tool permissions and placeholder
// resolution are checked in full before any script starts, so a
// misconfigured command never has side effects. A failed invocation produces
// no transcript; the *Error it returns names the error Kind and the
// offending section.
package dispatch
