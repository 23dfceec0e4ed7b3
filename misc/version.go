// Package misc carries build identification shared by every command.
package misc

import "runtime/debug"

const appName = "trbk"

// GetAppName returns the short program name used for logging, temporary
// files and the command itself.
func GetAppName() string {
	return appName
}

// GetVersion returns the module version recorded by the build.
func GetVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "(devel)"
}

// GetGitHash returns the VCS revision recorded by the build.
func GetGitHash() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	var hash, modified string
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			hash = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				modified = "*"
			}
		}
	}
	if hash == "" {
		return "unknown"
	}
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return hash + modified
}
