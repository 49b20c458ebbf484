// Package version carries build metadata set with -ldflags -X.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for `motion version` and startup logs.
func String() string {
	return fmt.Sprintf("motion %s (commit %s, built %s)", Version, GitSHA, BuildTime)
}
