package cli

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/matzehuels/pikchr/pkg/errors"
)

// formatList is a comma-separated list of output formats. It validates each
// entry as it is parsed so typos fail at flag parsing time.
type formatList []string

var _ pflag.Value = (*formatList)(nil)

func (f *formatList) String() string {
	return strings.Join(*f, ",")
}

func (f *formatList) Set(s string) error {
	var formats []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		formats = append(formats, part)
	}
	if err := errors.ValidateFormats(formats); err != nil {
		return err
	}
	*f = formats
	return nil
}

func (f *formatList) Type() string {
	return "formats"
}

// formatsFlag registers a --format/-f flag on fs backed by f.
func formatsFlag(fs *pflag.FlagSet, f *formatList) {
	fs.VarP(f, "format", "f", "output format(s): "+strings.Join(errors.Formats, ", ")+" (comma-separated)")
}
