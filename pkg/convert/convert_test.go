package convert

import (
	"bytes"
	"context"
	"image/png"
	"os/exec"
	"testing"

	"github.com/matzehuels/pikchr/pkg/errors"
)

const testSVG = `<svg xmlns='http://www.w3.org/2000/svg' viewBox="0 0 152.64 47.88">
<polygon points="146,23 134,28 134,19 146,23" style="fill:rgb(0,0,0)"/>
<path d="M2,23L140,23" style="fill:none;stroke-width:2.16;stroke:rgb(0,0,0);" />
<text x="74" y="12" text-anchor="middle" fill="rgb(0,0,0)" dominant-baseline="central">Markdown</text>
</svg>`

// withoutRSVG hides rsvg-convert for the duration of the test.
func withoutRSVG(t *testing.T) {
	t.Helper()
	orig := lookPath
	lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	t.Cleanup(func() { lookPath = orig })
}

func requireRSVG(t *testing.T) {
	t.Helper()
	if !HasRSVG() {
		t.Skip("rsvg-convert not installed")
	}
}

func TestRasterizePNG(t *testing.T) {
	tests := []struct {
		name  string
		scale float64
		w, h  int
	}{
		{"default scale", 0, 153, 48},
		{"unit scale", 1, 153, 48},
		{"double", 2, 306, 96},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := RasterizePNG([]byte(testSVG), Options{Scale: tt.scale})
			if err != nil {
				t.Fatalf("RasterizePNG: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != tt.w || b.Dy() != tt.h {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.w, tt.h)
			}
		})
	}
}

func TestRasterizePNGBackground(t *testing.T) {
	out, err := RasterizePNG([]byte(testSVG), Options{Background: "White"})
	if err != nil {
		t.Fatalf("RasterizePNG: %v", err)
	}
	img, _ := png.Decode(bytes.NewReader(out))
	r, g, b, a := img.At(0, 0).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff || a != 0xffff {
		t.Errorf("corner pixel = %v %v %v %v, want opaque white", r, g, b, a)
	}

	transparent, _ := RasterizePNG([]byte(testSVG), Options{})
	img, _ = png.Decode(bytes.NewReader(transparent))
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Errorf("corner alpha = %v, want transparent", a)
	}
}

func TestRasterizePNGErrors(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		opts Options
		code errors.Code
	}{
		{"bad background", testSVG, Options{Background: "notacolor"}, errors.ErrCodeInvalidInput},
		{"empty viewBox", `<svg xmlns='http://www.w3.org/2000/svg' viewBox="0 0 0 0"></svg>`, Options{}, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RasterizePNG([]byte(tt.svg), tt.opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestParseBackground(t *testing.T) {
	if c, err := ParseBackground(""); c != nil || err != nil {
		t.Errorf("empty name: %v, %v", c, err)
	}
	if c, err := ParseBackground("navy"); c == nil || err != nil {
		t.Errorf("navy: %v, %v", c, err)
	}
	if _, err := ParseBackground("#fff"); err == nil {
		t.Error("hex colors are not color names")
	}
}

func TestToPDFWithoutRSVG(t *testing.T) {
	withoutRSVG(t)

	_, err := ToPDF(context.Background(), []byte(testSVG), Options{})
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("err = %v, want UNSUPPORTED", err)
	}
}

func TestToPNGFallback(t *testing.T) {
	withoutRSVG(t)

	out, err := ToPNG(context.Background(), []byte(testSVG), Options{Scale: 1})
	if err != nil {
		t.Fatalf("ToPNG: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestRSVGConvert(t *testing.T) {
	requireRSVG(t)
	ctx := context.Background()

	pngOut, err := ToPNG(ctx, []byte(testSVG), Options{Scale: 2})
	if err != nil {
		t.Fatalf("ToPNG: %v", err)
	}
	if !bytes.HasPrefix(pngOut, []byte("\x89PNG")) {
		t.Error("ToPNG output is not a PNG")
	}

	pdfOut, err := ToPDF(ctx, []byte(testSVG), Options{})
	if err != nil {
		t.Fatalf("ToPDF: %v", err)
	}
	if !bytes.HasPrefix(pdfOut, []byte("%PDF")) {
		t.Error("ToPDF output is not a PDF")
	}
}

func TestRSVGConvertInvalidInput(t *testing.T) {
	requireRSVG(t)

	_, err := ToPNG(context.Background(), []byte("not svg"), Options{})
	if !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("err = %v, want INTERNAL_ERROR", err)
	}
}
