// Package manifest parses command definition files: markdown documents with
// an optional YAML frontmatter block (description, allowed-tools, ...) and a
// body made of literal text, script-invocation lines (!`cmd args`), and
// reference-inclusion lines (@path). Frontmatter is validated against the
// embedded JSON Schema in schema/command.schema.json.
package manifest
