// Package version compares the running CLI version against the semver
// constraints command definitions declare in their "requires" field.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// IsRelease reports whether v parses as a semver release. Development
// builds ("dev", "unknown") are not releases.
func IsRelease(v string) bool {
	_, err := parseSemver(v)
	return err == nil
}

// Satisfies reports whether current meets constraint. An empty constraint is
// always satisfied, and so is any constraint when current is not a release
// build, so local builds can run every command.
func Satisfies(current, constraint string) (bool, error) {
	if strings.TrimSpace(constraint) == "" {
		return true, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("parsing constraint %q: %w", constraint, err)
	}
	cv, err := parseSemver(current)
	if err != nil {
		return true, nil
	}
	return c.Check(cv), nil
}

// parseSemver strips a leading "v" and parses the version string.
func parseSemver(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(version, "v")
	return semver.NewVersion(version)
}
