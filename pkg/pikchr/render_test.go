package pikchr

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

const arrowSource = `arrow right 200% "Markdown" "Source"`

// requireRenderer skips tests that need libpikchr linked in.
func requireRenderer(t *testing.T) {
	t.Helper()
	if !Available() {
		t.Skip("pikchr renderer not available (built without cgo)")
	}
}

func TestRenderRejectsNUL(t *testing.T) {
	tests := []struct {
		name   string
		source string
		opts   []Option
		field  string
	}{
		{"source", "box\x00", nil, "source"},
		{"class", "box", []Option{WithClass("a\x00b")}, "class"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Render(tt.source, DefaultFlags(), tt.opts...)
			if img != nil {
				t.Fatal("expected no image")
			}
			var encErr *EncodingError
			if !errors.As(err, &encErr) {
				t.Fatalf("expected *EncodingError, got %v", err)
			}
			if encErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", encErr.Field, tt.field)
			}
		})
	}
}

func TestRenderArrow(t *testing.T) {
	requireRenderer(t)

	img, err := Render(arrowSource, DefaultFlags())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	defer img.Close()

	svg := img.String()
	if !strings.Contains(svg, "<svg") {
		t.Fatalf("output has no <svg tag: %q", svg)
	}
	if !strings.Contains(svg, `viewBox="0 0 152.64 47.88"`) {
		t.Errorf("unexpected viewBox in %q", svg)
	}
	if w := img.Width(); w != 152 && w != 153 {
		t.Errorf("Width() = %d, want 152 or 153", w)
	}
	if h := img.Height(); h != 47 && h != 48 {
		t.Errorf("Height() = %d, want 47 or 48", h)
	}

	counts := map[string]int{"<polygon": 1, "<path": 1, "<text": 2}
	for tag, want := range counts {
		if got := strings.Count(svg, tag); got != want {
			t.Errorf("count(%s) = %d, want %d", tag, got, want)
		}
	}
	if img.Len() != len(svg) {
		t.Errorf("Len() = %d, want %d", img.Len(), len(svg))
	}
}

func TestRenderEmptySource(t *testing.T) {
	requireRenderer(t)

	for _, src := range []string{"", "   \n\t"} {
		img, err := Render(src, DefaultFlags())
		if err != nil {
			t.Fatalf("Render(%q): %v", src, err)
		}
		if img.Width() < 0 || img.Height() < 0 {
			t.Errorf("Render(%q): negative size %dx%d", src, img.Width(), img.Height())
		}
		img.Close()
	}
}

func TestRenderSyntaxError(t *testing.T) {
	requireRenderer(t)

	sources := []string{
		`box "unterminated`,
		`arrow right 200% "Markdown`,
	}
	for _, src := range sources {
		img, err := Render(src, DefaultFlags())
		if img != nil {
			img.Close()
			t.Fatalf("Render(%q) should fail", src)
		}
		var rerr *RenderError
		if !errors.As(err, &rerr) {
			t.Fatalf("Render(%q): expected *RenderError, got %v", src, err)
		}
		if strings.TrimSpace(rerr.Message) == "" {
			t.Errorf("Render(%q): empty error message", src)
		}
	}
}

func TestRenderHTMLErrors(t *testing.T) {
	requireRenderer(t)

	src := `box "unterminated`
	plain := DefaultFlags()
	html := DefaultFlags()
	html.GenerateHTMLErrors()

	_, plainErr := Render(src, plain)
	_, htmlErr := Render(src, html)
	if plainErr == nil || htmlErr == nil {
		t.Fatal("both renders should fail")
	}
	if !strings.Contains(htmlErr.Error(), "<") {
		t.Errorf("HTML error has no markup: %q", htmlErr.Error())
	}
	if plainErr.Error() == htmlErr.Error() {
		t.Error("plain and HTML errors should differ")
	}
}

func TestRenderDarkMode(t *testing.T) {
	requireRenderer(t)

	light, err := Render(arrowSource, DefaultFlags())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	defer light.Close()

	flags := DefaultFlags()
	flags.UseDarkMode()
	dark, err := Render(arrowSource, flags)
	if err != nil {
		t.Fatalf("Render dark: %v", err)
	}
	defer dark.Close()

	if light.String() == dark.String() {
		t.Error("dark mode output should differ from light mode")
	}
	if light.Width() != dark.Width() || light.Height() != dark.Height() {
		t.Error("dark mode should not change the diagram size")
	}
}

func TestRenderWithClass(t *testing.T) {
	requireRenderer(t)

	img, err := Render(arrowSource, DefaultFlags(), WithClass("pikchr-diagram"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	defer img.Close()

	if !strings.Contains(img.String(), "pikchr-diagram") {
		t.Errorf("class missing from output: %q", img.String())
	}
}

func TestRenderConcurrent(t *testing.T) {
	requireRenderer(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := Render(arrowSource, DefaultFlags())
			if err != nil {
				errs <- err
				return
			}
			defer img.Close()
			if !strings.Contains(img.String(), "<svg") {
				errs <- errors.New("missing <svg")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestRenderUnavailable(t *testing.T) {
	if Available() {
		t.Skip("renderer is linked in")
	}
	if _, err := Render("box", DefaultFlags()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
