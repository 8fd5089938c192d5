package version

import (
	"strings"

	"github.com/Masterminds/semver"
)

var (
	// Version contains the current version of iwmon
	Version = "dev"

	// CommitHash contains the current git commit hash
	CommitHash = "unknown"

	// BuildTime contains the time of build
	BuildTime = "unknown"
)

// Semver parses Version. Development builds report 0.0.0.
func Semver() *semver.Version {
	v, err := semver.NewVersion(strings.TrimPrefix(Version, "v"))
	if err != nil {
		return semver.MustParse("0.0.0")
	}
	return v
}

// String is the one-line version banner.
func String() string {
	return Version + " (commit: " + CommitHash + ", built at: " + BuildTime + ")"
}
