// Package version reports the build identity of the pyfuscate binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Placeholder values used until ldflags or build info provide real ones.
const (
	devVersion     = "dev"
	unknownCommit  = "none"
	unknownDate    = "unknown"
	shortCommitLen = 12
)

// Build identity, set with -ldflags "-X .../pkg/version.Version=...".
//
//nolint:gochecknoglobals // Set by the linker.
var (
	Version = devVersion
	Commit  = unknownCommit
	Date    = unknownDate
)

// InitBinaryVersion fills values the linker left unset from the module build
// info embedded by the go tool.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == devVersion && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknownCommit {
				Commit = setting.Value
				if len(Commit) > shortCommitLen {
					Commit = Commit[:shortCommitLen]
				}
			}
		case "vcs.time":
			if Date == unknownDate {
				Date = setting.Value
			}
		}
	}
}

// String formats the identity for the version command.
func String() string {
	return fmt.Sprintf("pyfuscate %s (commit: %s, built: %s)", Version, Commit, Date)
}
