package internal

import (
	"fmt"
	"runtime"
	"strings"
)

// Name is the canonical command name.
const Name = "whereyoufrom"

var (
	version = "" // Version number (e.g. "1.2.3"), set via linker flags
)

// Version returns the build version, or "dev" for local builds.
// A leading "v" prefix is stripped.
func Version() string {
	v := strings.TrimSpace(version)
	if v == "" {
		return "dev"
	}
	return strings.TrimPrefix(strings.ToLower(v), "v")
}

// VersionString returns the full version line printed by --version.
func VersionString() string {
	return fmt.Sprintf("%s %s (%s %s)", Name, Version(), runtime.GOOS, runtime.GOARCH)
}
