// Package version reports the build identity of the kkookk binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is set at build time with -ldflags "-X .../version.Version=v1.2.3".
	// Falls back to the module version embedded by go install.
	Version = "dev"

	// Commit is the VCS revision, filled from build info when available.
	Commit = ""
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	if Commit == "" {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				Commit = s.Value[:7]
			}
		}
	}
}

// String renders "kkookk <version> [<commit>] <os>/<arch>".
func String() string {
	if Commit != "" {
		return fmt.Sprintf("kkookk %s %s %s/%s", Version, Commit, runtime.GOOS, runtime.GOARCH)
	}
	return fmt.Sprintf("kkookk %s %s/%s", Version, runtime.GOOS, runtime.GOARCH)
}

// UserAgent is the value the API client sends in User-Agent.
func UserAgent() string {
	return "kkookk-cli/" + Version
}
