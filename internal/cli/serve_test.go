package cli

import (
	"strings"
	"testing"

	"github.com/matzehuels/pikchr/pkg/config"
)

func TestServerDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Render.Class = "diagram"
	cfg.Render.DarkMode = true
	cfg.Render.HTMLErrors = true
	cfg.Render.Scale = 4
	cfg.Render.Background = "white"

	o := serverDefaults(cfg)
	if o.Class != "diagram" || !o.DarkMode || !o.HTMLErrors || o.Scale != 4 || o.Background != "white" {
		t.Errorf("serverDefaults() = %+v", o)
	}
	if len(o.Formats) != 0 {
		t.Errorf("formats come from the request, got %v", o.Formats)
	}
}

func TestServeBanner(t *testing.T) {
	out := captureUI(t)
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:9999"

	printServeBanner(cfg, true)

	s := out.String()
	if !strings.Contains(s, "127.0.0.1:9999") {
		t.Errorf("banner missing address: %q", s)
	}
	if !strings.Contains(s, config.BackendNone) {
		t.Errorf("--no-cache should report the none backend: %q", s)
	}
}
