// Package version holds the build-time version string, overridden via
// -ldflags "-X github.com/deacon-dev/deacon/internal/version.Version=...".
package version

// Version is the deacon binary's version. "dev" outside of a release build.
var Version = "dev"
