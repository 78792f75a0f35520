package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/pikchr/pkg/buildinfo"
	"github.com/matzehuels/pikchr/pkg/pikchr"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diagram.pikchr")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetOut(&stdout)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestRootNoArgs(t *testing.T) {
	out, err := executeRoot(t)
	if err != nil {
		t.Fatalf("no-arg run should succeed, got %v", err)
	}
	if out != "" {
		t.Errorf("no-arg run should print nothing, got %q", out)
	}
}

func TestRootTooManyArgs(t *testing.T) {
	if _, err := executeRoot(t, "a.pikchr", "b.pikchr"); err == nil {
		t.Error("expected an error for two positional arguments")
	}
}

func TestRootMissingFile(t *testing.T) {
	_, err := executeRoot(t, filepath.Join(t.TempDir(), "missing.pikchr"))
	if !stderrors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestRootVersion(t *testing.T) {
	c := New(io.Discard, LogInfo)
	if v := c.RootCommand().Version; v != buildinfo.Version {
		t.Errorf("Version = %q, want %q", v, buildinfo.Version)
	}
}

func TestRootWithoutRenderer(t *testing.T) {
	if pikchr.Available() {
		t.Skip("renderer is linked")
	}
	_, err := executeRoot(t, writeSource(t, "box"))
	if !stderrors.Is(err, pikchr.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestRootRender(t *testing.T) {
	if !pikchr.Available() {
		t.Skip("pikchr renderer not available (built without cgo)")
	}
	src := `arrow right 200% "Markdown" "Source"`

	out, err := executeRoot(t, writeSource(t, src))
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	// Output is the renderer's text, byte for byte.
	flags := pikchr.DefaultFlags()
	img, err := pikchr.Render(src, *flags.GeneratePlainErrors())
	if err != nil {
		t.Fatal(err)
	}
	defer img.Close()
	if out != img.String() {
		t.Error("stdout differs from the rendered SVG")
	}
	if !strings.Contains(out, `viewBox="0 0 152.64 47.88"`) {
		t.Errorf("unexpected viewBox in %.80q", out)
	}
}

func TestRootRenderError(t *testing.T) {
	if !pikchr.Available() {
		t.Skip("pikchr renderer not available (built without cgo)")
	}

	out, err := executeRoot(t, writeSource(t, `box "unterminated`))
	var rerr *pikchr.RenderError
	if !stderrors.As(err, &rerr) {
		t.Fatalf("err = %v, want *pikchr.RenderError", err)
	}
	if rerr.Message == "" {
		t.Error("render error has an empty message")
	}
	if strings.Contains(rerr.Message, "<div") {
		t.Error("root command must request plain-text errors")
	}
	if out != "" {
		t.Errorf("nothing should reach stdout on failure, got %q", out)
	}
}

func TestRootInvalidUTF8(t *testing.T) {
	if !pikchr.Available() {
		t.Skip("pikchr renderer not available (built without cgo)")
	}
	// A label with an invalid byte still renders after lossy decoding.
	if _, err := executeRoot(t, writeSource(t, "box \"a\xffb\"")); err != nil {
		t.Errorf("render: %v", err)
	}
}
