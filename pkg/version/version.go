// Package version reports the build version shared by mcpsheets binaries.
package version

import "runtime/debug"

// Name is the server name advertised to MCP clients.
const Name = "mcpsheets"

// version is overridden with -ldflags "-X github.com/vinodismyname/mcpsheets/pkg/version.version=v1.2.3".
var version = "dev"

// Version returns the module version recorded in the build info, falling back
// to the ldflags value for local builds.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
		return info.Main.Version
	}
	return version
}

// String is the name and version, e.g. "mcpsheets dev".
func String() string {
	return Name + " " + Version()
}
