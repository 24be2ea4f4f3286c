// Package buildinfo holds version metadata injected at build time.
package buildinfo

// Version is overridden by the release build via
// -ldflags "-X github.com/stashyhq/stashy/internal/buildinfo.Version=v1.2.3".
var Version = "dev"
