// Package version exposes build metadata stamped in via -ldflags.
package version

import "runtime"

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// Commit is the short git SHA of the build.
	Commit = "unknown"
	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)

// Info is the build identity reported on the health endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get assembles the stamped values plus the Go runtime version.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
