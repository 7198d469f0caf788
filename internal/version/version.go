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

// String formats the build variables for -version output and /health.
func String() string {
	return fmt.Sprintf("mortality.report %s (%s, built %s)", Version, GitSHA, BuildTime)
}
