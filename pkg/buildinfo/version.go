// Package buildinfo provides build-time version information.
//
// Variables are set via ldflags during build:
//
//	go build -ldflags "-X github.com/matzehuels/pikchr/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/pikchr/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/pikchr/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import (
	"fmt"

	"github.com/matzehuels/pikchr/pkg/pikchr"
)

var (
	// Version is the semantic version (e.g., "v1.2.3").
	// Set via ldflags: -X github.com/matzehuels/pikchr/pkg/buildinfo.Version=...
	Version = "dev"

	// Commit is the git commit SHA.
	// Set via ldflags: -X github.com/matzehuels/pikchr/pkg/buildinfo.Commit=...
	Commit = "none"

	// Date is the build timestamp.
	// Set via ldflags: -X github.com/matzehuels/pikchr/pkg/buildinfo.Date=...
	Date = "unknown"
)

// Renderer describes how the pikchr renderer was linked into this binary.
func Renderer() string {
	if pikchr.Available() {
		return "libpikchr (cgo)"
	}
	return "unavailable (built without cgo)"
}

// String returns the formatted build information.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s\nrenderer: %s", Version, Commit, Date, Renderer())
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\nrenderer: %s\n", Version, Commit, Date, Renderer())
}
