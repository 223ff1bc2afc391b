// Package version holds the build information, set with -ldflags.
package version

var (
	Version = "dev"
	Commit  = "unknown"
)
