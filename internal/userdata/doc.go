// Package userdata resolves the directories Cortex reads from (the plugin
// install root, the user and project command directories) and parses the
// .env files that seed template variables.
package userdata
