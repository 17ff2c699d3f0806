package version

import (
	"runtime/debug"
)

var (
	Version = "0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// Resolve returns the release version. Builds without a release commit
// stamped via ldflags get the VCS revision recorded by the Go toolchain
// appended, plus "-dirty" for modified trees.
func Resolve() string {
	return resolveVersion(Version, Commit, debug.ReadBuildInfo)
}

func resolveVersion(base, commit string, buildInfo func() (*debug.BuildInfo, bool)) string {
	if base == "" {
		base = "0.0.0"
	}
	if commit != "" && commit != "unknown" {
		return base
	}

	revision, modified := vcsRevision(buildInfo)
	if revision == "" {
		return base
	}

	out := base + "-" + revision
	if modified {
		out += "-dirty"
	}
	return out
}

func vcsRevision(buildInfo func() (*debug.BuildInfo, bool)) (string, bool) {
	if buildInfo == nil {
		return "", false
	}
	info, ok := buildInfo()
	if !ok || info == nil {
		return "", false
	}

	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}

	if len(revision) > 7 {
		revision = revision[:7]
	}
	return revision, modified
}
