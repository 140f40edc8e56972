// Package version provides information about the build version of visionkit.
package version

import "runtime"

// BuildInfo holds version information about the build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	// WireVersion is the remote sidecar protocol revision this build speaks
	WireVersion int `json:"wire_version"`
}

// WireVersion is the sidecar protocol revision, bumped on incompatible changes
const WireVersion = 1

// Info returns the build information. version, commit and date are set at
// build time:
//
//	-ldflags "-X 'visionkit/internal/core/version.version=v0.1.0'
//	          -X 'visionkit/internal/core/version.commit=abcd'
//	          -X 'visionkit/internal/core/version.date=2026-10-01'"
func Info() BuildInfo {
	return BuildInfo{
		Service:     "visionkit",
		Version:     version,
		Commit:      commit,
		Date:        date,
		Go:          runtime.Version(),
		WireVersion: WireVersion,
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
