// Package pipeline provides the render pipeline shared by the CLI and the
// HTTP server.
//
// This package implements source → SVG → (PNG, PDF) with artifact caching.
// By centralizing this logic, the CLI and the server key, cache, convert
// and log renders the same way.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Render: Run the pikchr renderer once to produce SVG
//  2. Convert: Turn the SVG into each requested raster or document format
//
// Each artifact is cached under a key derived from the source hash and
// every option that changes the output. Render errors are never cached.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, source, pipeline.Options{
//	    Formats: []string{"svg", "png"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pikchr/pkg/cache"
	"github.com/matzehuels/pikchr/pkg/convert"
	"github.com/matzehuels/pikchr/pkg/errors"
	"github.com/matzehuels/pikchr/pkg/pikchr"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

// DefaultScale is the default PNG scale factor.
const DefaultScale = 2.0

// Format constants for output formats.
const (
	FormatSVG = errors.FormatSVG
	FormatPNG = errors.FormatPNG
	FormatPDF = errors.FormatPDF
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Render options
	Class      string `json:"class,omitempty"`
	DarkMode   bool   `json:"dark_mode,omitempty"`
	HTMLErrors bool   `json:"html_errors,omitempty"`

	// Output options
	Formats    []string `json:"formats,omitempty"`
	Scale      float64  `json:"scale,omitempty"`
	Background string   `json:"background,omitempty"`

	// Refresh skips cache lookups; fresh artifacts are still stored.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Width and Height are the diagram size reported by the renderer.
	Width  int
	Height int

	// CacheHit is true when every artifact came from the cache.
	CacheHit bool

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	SourceBytes int
	RenderTime  time.Duration
	ConvertTime time.Duration
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks every field and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := errors.ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := errors.ValidateScale(o.Scale); err != nil {
		return err
	}
	if err := errors.ValidateClassName(o.Class); err != nil {
		return err
	}
	if _, err := convert.ParseBackground(o.Background); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetDefaults sets default values for every unset field.
func (o *Options) SetDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Flags returns the renderer flags for these options.
func (o *Options) Flags() pikchr.Flags {
	f := pikchr.DefaultFlags()
	if o.DarkMode {
		f.UseDarkMode()
	}
	if o.HTMLErrors {
		f.GenerateHTMLErrors()
	}
	return f
}

// RenderOptions returns the renderer options for these options.
func (o *Options) RenderOptions() []pikchr.Option {
	if o.Class == "" {
		return nil
	}
	return []pikchr.Option{pikchr.WithClass(o.Class)}
}

// ConvertOptions returns the converter options for these options.
func (o *Options) ConvertOptions() convert.Options {
	return convert.Options{Scale: o.Scale, Background: o.Background}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
// Scale and background only affect PNG and PDF output, so they are left out
// of every other key.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	f := o.Flags()
	opts := cache.ArtifactKeyOpts{
		Format: format,
		Class:  o.Class,
		Flags:  uint32(f.Bits()),
	}
	if format == FormatPNG || format == FormatPDF {
		opts.Scale = o.Scale
		opts.Background = o.Background
	}
	return opts
}
