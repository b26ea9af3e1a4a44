// Package misc holds small helpers which do not belong anywhere else.
package misc

import (
	"runtime/debug"
)

const appName = "scribe"

// GetAppName returns short program name used in logs, temporary file names
// and the default configuration.
func GetAppName() string {
	return appName
}

// GetVersion returns program version. When built from a tagged module it is
// the module version, otherwise whatever the linker was told to put here.
func GetVersion() string {
	if version != "" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "development"
}

// GetGitHash returns VCS revision recorded in the binary build information.
func GetGitHash() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				if len(s.Value) > 12 {
					return s.Value[:12]
				}
				return s.Value
			}
		}
	}
	return "unknown"
}

// overwritten by the linker on release builds
var version string
