// Package version contains build version information.
package version

// Build information, set at build time via ldflags:
//
//	-X github.com/bissquit/storefront/internal/version.Version=...
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)
