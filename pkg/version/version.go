// Package version holds the application version string.
package version

// Version is the current GhostPace version.
// Overridden at build time via -ldflags "-X ghostpace/pkg/version.Version=...".
var Version = "0.2.0"
