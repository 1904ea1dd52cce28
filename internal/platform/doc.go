// Package platform hides the OS differences the script runner and scaffolder
// care about: starting a child in its own process group, killing that group,
// and setting permission bits. On Unix the group kill goes through
// golang.org/x/sys/unix. On Windows only the direct child is killed and Chmod
// is a no-op.
package platform
