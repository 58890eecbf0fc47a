// Package version exposes build-time version metadata.
package version

import "fmt"

// Version is injected at build time via -ldflags.
var Version = "dev"

// String returns the human-readable version line.
func String() string {
	return fmt.Sprintf("voiceflow %s", Version)
}
