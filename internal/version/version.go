// Package version provides the simplesd version string.
package version

// Version is the current simplesd version.
// Override at build time: go build -ldflags "-X github.com/tomcumming/simples/internal/version.Version=2.0.0"
var Version = "0.1.0"

// BuildTime is the build timestamp.
// Override at build time: go build -ldflags "-X github.com/tomcumming/simples/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var BuildTime = "unknown"
