// Package convert turns rendered SVG diagrams into PNG and PDF.
//
// Conversion prefers rsvg-convert from librsvg, which handles the full SVG
// feature set pikchr emits, including text. When rsvg-convert is not on
// PATH, PNG output falls back to a pure-Go rasterizer built on oksvg and
// rasterx. The fallback draws shapes and lines only: text labels are
// dropped. PDF has no fallback and fails with UNSUPPORTED.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os/exec"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"

	"github.com/matzehuels/pikchr/pkg/errors"
)

const rsvgBinary = "rsvg-convert"

// lookPath is replaced in tests to simulate a missing rsvg-convert.
var lookPath = exec.LookPath

// Options control raster and document output.
type Options struct {
	// Scale multiplies the SVG's intrinsic size for PNG output.
	// Zero means 1.
	Scale float64
	// Background is a CSS color name painted behind the diagram.
	// Empty means transparent.
	Background string
}

func (o Options) scale() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

// HasRSVG reports whether rsvg-convert is available on PATH.
func HasRSVG() bool {
	_, err := lookPath(rsvgBinary)
	return err == nil
}

// ParseBackground resolves a CSS color name. The empty name is transparent
// and yields a nil color.
func ParseBackground(name string) (color.Color, error) {
	if name == "" {
		return nil, nil
	}
	c, ok := colornames.Map[strings.ToLower(name)]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown background color %q", name)
	}
	return c, nil
}

// ToPDF converts SVG bytes to PDF using rsvg-convert.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func ToPDF(ctx context.Context, svg []byte, opts Options) ([]byte, error) {
	if !HasRSVG() {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"pdf export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin")
	}
	return rsvgConvert(ctx, svg, errors.FormatPDF, backgroundArgs(opts)...)
}

// ToPNG converts SVG bytes to PNG. It uses rsvg-convert when installed and
// otherwise rasterizes in-process with [RasterizePNG].
func ToPNG(ctx context.Context, svg []byte, opts Options) ([]byte, error) {
	if !HasRSVG() {
		return RasterizePNG(svg, opts)
	}
	args := append([]string{"-z", fmt.Sprintf("%.2f", opts.scale())}, backgroundArgs(opts)...)
	return rsvgConvert(ctx, svg, errors.FormatPNG, args...)
}

// RasterizePNG renders SVG bytes to PNG without external tools.
// Text elements are not rendered.
func RasterizePNG(svg []byte, opts Options) ([]byte, error) {
	bg, err := ParseBackground(opts.Background)
	if err != nil {
		return nil, err
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.WarnErrorMode)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse svg")
	}

	scale := opts.scale()
	w := int(math.Ceil(icon.ViewBox.W * scale))
	h := int(math.Ceil(icon.ViewBox.H * scale))
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "svg has an empty viewBox")
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if bg != nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return out.Bytes(), nil
}

func backgroundArgs(opts Options) []string {
	if opts.Background == "" {
		return nil
	}
	return []string{"-b", opts.Background}
}

// rsvgConvert shells out to rsvg-convert for format conversion.
func rsvgConvert(ctx context.Context, svg []byte, format string, extraArgs ...string) ([]byte, error) {
	args := append([]string{"-f", format}, extraArgs...)
	cmd := exec.CommandContext(ctx, rsvgBinary, args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "rsvg-convert: %s", strings.TrimSpace(errBuf.String()))
	}
	return out.Bytes(), nil
}
