package cli

import (
	"io"
	"os"

	"github.com/matzehuels/pikchr/pkg/pikchr"
)

// runRoot renders one file with the default flags and plain-text errors and
// writes the SVG to w exactly as produced.
func runRoot(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	flags := pikchr.DefaultFlags()
	img, err := pikchr.Render(pikchr.DecodeSource(data), *flags.GeneratePlainErrors())
	if err != nil {
		return err
	}
	defer img.Close()

	_, err = img.WriteTo(w)
	return err
}
