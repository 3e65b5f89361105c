// Package version resolves the build version reported by the CLI and the
// bridge.
package version

import (
	"runtime/debug"
	"strings"
)

// IsDevelopmentVersion returns true for non-release versions.
func IsDevelopmentVersion(v string) bool {
	if v == "" || v == "unknown" || v == "dev" || v == "devel" {
		return true
	}
	return strings.HasPrefix(v, "devel+")
}

// Effective returns v when it names a release, otherwise a version derived
// from the Go build info.
func Effective(v string) string {
	if !IsDevelopmentVersion(v) {
		return v
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return v
	}
	return fromBuildInfo(v, info)
}

func fromBuildInfo(v string, info *debug.BuildInfo) string {
	// `go install module@vX.Y.Z` stamps the module version.
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	var rev, modified string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			modified = s.Value
		}
	}
	if rev == "" {
		return v
	}
	parts := []string{"devel", rev[:min(len(rev), 12)]}
	if modified == "true" {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "+")
}
