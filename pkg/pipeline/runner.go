package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pikchr/pkg/cache"
	"github.com/matzehuels/pikchr/pkg/convert"
	"github.com/matzehuels/pikchr/pkg/observability"
	"github.com/matzehuels/pikchr/pkg/pikchr"
)

// metaFormat is the pseudo-format under which diagram dimensions are cached.
const metaFormat = "meta"

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL is how long new artifacts are kept. Zero means cache.TTLArtifact.
	TTL time.Duration

	// Render produces SVG and the diagram size from source.
	// Nil means the linked pikchr renderer.
	Render RenderFunc
}

// RenderFunc turns diagram source into SVG bytes owned by the caller.
type RenderFunc func(source string, opts *Options) (svg []byte, width, height int, err error)

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		Render: RenderSVG,
	}
}

// Execute renders source into every requested format, serving artifacts
// from the cache when all of them are present.
func (r *Runner) Execute(ctx context.Context, source string, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	sourceHash := cache.Hash([]byte(source))
	result := &Result{
		Artifacts: make(map[string][]byte, len(opts.Formats)),
		Stats:     Stats{SourceBytes: len(source)},
	}

	if !opts.Refresh {
		if r.fromCache(ctx, sourceHash, &opts, result) {
			opts.Logger.Debug("served from cache", "formats", opts.Formats, "hash", sourceHash[:12])
			return result, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 1: Render
	hooks := observability.Render()
	hooks.OnRenderStart(ctx, opts.Formats)
	renderStart := time.Now()
	render := r.Render
	if render == nil {
		render = RenderSVG
	}
	svg, width, height, err := render(source, &opts)
	result.Stats.RenderTime = time.Since(renderStart)
	hooks.OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Width, result.Height = width, height

	opts.Logger.Debug("rendered svg",
		"bytes", len(svg),
		"width", width,
		"height", height,
		"duration", result.Stats.RenderTime)

	// Stage 2: Convert
	convertStart := time.Now()
	for _, format := range opts.Formats {
		data, err := r.convert(ctx, svg, format, &opts)
		if err != nil {
			return nil, err
		}
		result.Artifacts[format] = data
	}
	result.Stats.ConvertTime = time.Since(convertStart)

	r.store(ctx, sourceHash, &opts, result)
	return result, nil
}

// fromCache fills result when every requested artifact is cached.
func (r *Runner) fromCache(ctx context.Context, sourceHash string, opts *Options, result *Result) bool {
	hooks := observability.Cache()

	metaData, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(sourceHash, opts.ArtifactKeyOpts(metaFormat)))
	if err != nil || !hit {
		hooks.OnCacheMiss(ctx, metaFormat)
		return false
	}
	var meta sizeMeta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		hooks.OnCacheMiss(ctx, metaFormat)
		return false
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(sourceHash, opts.ArtifactKeyOpts(format)))
		if err != nil {
			opts.Logger.Warn("cache read failed", "format", format, "err", err)
		}
		if err != nil || !hit {
			hooks.OnCacheMiss(ctx, format)
			return false
		}
		hooks.OnCacheHit(ctx, format)
		artifacts[format] = data
	}

	result.Artifacts = artifacts
	result.Width, result.Height = meta.Width, meta.Height
	result.CacheHit = true
	return true
}

// store writes every artifact plus the size metadata. Cache write failures
// are logged and otherwise ignored.
func (r *Runner) store(ctx context.Context, sourceHash string, opts *Options, result *Result) {
	ttl := r.TTL
	if ttl == 0 {
		ttl = cache.TTLArtifact
	}
	hooks := observability.Cache()

	set := func(format string, data []byte) {
		key := r.Keyer.ArtifactKey(sourceHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
			opts.Logger.Warn("cache write failed", "format", format, "err", err)
			return
		}
		hooks.OnCacheSet(ctx, format, len(data))
	}

	for format, data := range result.Artifacts {
		set(format, data)
	}
	if meta, err := json.Marshal(sizeMeta{Width: result.Width, Height: result.Height}); err == nil {
		set(metaFormat, meta)
	}
}

// convert produces one artifact from the rendered SVG.
func (r *Runner) convert(ctx context.Context, svg []byte, format string, opts *Options) ([]byte, error) {
	if format == FormatSVG {
		return svg, nil
	}

	start := time.Now()
	var data []byte
	var err error
	switch format {
	case FormatPNG:
		data, err = convert.ToPNG(ctx, svg, opts.ConvertOptions())
	case FormatPDF:
		data, err = convert.ToPDF(ctx, svg, opts.ConvertOptions())
	default:
		err = fmt.Errorf("unsupported format: %s", format)
	}
	elapsed := time.Since(start)
	observability.Render().OnConvert(ctx, format, elapsed, err)

	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", format, err)
	}
	opts.Logger.Debug("converted", "format", format, "bytes", len(data), "duration", elapsed)
	return data, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// sizeMeta is the cached form of the diagram dimensions.
type sizeMeta struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RenderSVG runs the pikchr renderer and copies the result onto the Go heap.
func RenderSVG(source string, opts *Options) ([]byte, int, int, error) {
	img, err := pikchr.Render(source, opts.Flags(), opts.RenderOptions()...)
	if err != nil {
		return nil, 0, 0, err
	}
	defer img.Close()
	return img.Bytes(), img.Width(), img.Height(), nil
}
