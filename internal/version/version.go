// Package version reports build metadata injected through -ldflags.
package version

import (
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Resolved prefers the ldflags value and falls back to the module version
// recorded by `go install`.
func Resolved() string {
	if Version != "dev" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return Version
	}
	return info.Main.Version
}

func String() string {
	return "shotclock " + Resolved() + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}
