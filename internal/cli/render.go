package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/pikchr/pkg/config"
	"github.com/matzehuels/pikchr/pkg/errors"
	"github.com/matzehuels/pikchr/pkg/pikchr"
	"github.com/matzehuels/pikchr/pkg/pipeline"
)

// stdoutPath selects standard output for -o.
const stdoutPath = "-"

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string     // output file, base path, or "-" for stdout
	formats    formatList // output formats: svg, png, pdf
	dark       bool       // render with the dark-mode palette
	htmlErrors bool       // report errors as HTML instead of plain text
	class      string     // CSS class on the <svg> element
	scale      float64    // raster scale for png/pdf
	background string     // background color for png/pdf
	noCache    bool       // bypass the artifact cache entirely
	refresh    bool       // skip cache reads but store fresh artifacts
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render FILE...",
		Short: "Render pikchr files to SVG, PNG or PDF",
		Long: `Render one or more pikchr files through the caching pipeline.

Each input FILE produces FILE-without-extension.<format> for every requested
format. With a single input, -o sets the output path (or base path when
several formats are requested); "-o -" writes a single format to stdout.
With several inputs, -o names an output directory.`,
		Example: `  pikchr render diagram.pikchr
  pikchr render -f svg,png --scale 3 diagram.pikchr
  pikchr render --dark -o - diagram.pikchr > diagram.svg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			popts, err := opts.pipelineOptions(cmd, cfg)
			if err != nil {
				return err
			}
			if err := opts.validateOutput(args, popts.Formats); err != nil {
				return err
			}

			runner, err := c.newRunner(cmd.Context(), cfg, opts.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			for _, input := range args {
				if err := c.renderFile(cmd.Context(), runner, input, popts, &opts, cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return nil
		},
	}

	opts.bind(cmd.Flags())

	return cmd
}

// bind registers the render flags on fs.
func (o *renderOpts) bind(fs *pflag.FlagSet) {
	formatsFlag(fs, &o.formats)
	fs.StringVarP(&o.output, "output", "o", "", `output file, base path or directory ("-" for stdout)`)
	fs.BoolVar(&o.dark, "dark", false, "use the dark-mode color scheme")
	fs.BoolVar(&o.htmlErrors, "html-errors", false, "format error messages as HTML")
	fs.StringVar(&o.class, "class", "", "CSS class added to the <svg> element")
	fs.Float64Var(&o.scale, "scale", pipeline.DefaultScale, "scale factor for png and pdf output")
	fs.StringVar(&o.background, "background", "", "background color for png and pdf output (CSS color name)")
	fs.BoolVar(&o.noCache, "no-cache", false, "disable the artifact cache")
	fs.BoolVar(&o.refresh, "refresh", false, "re-render even when cached")
}

// pipelineOptions starts from the config file's render section and applies
// every flag the user set explicitly.
func (o *renderOpts) pipelineOptions(cmd *cobra.Command, cfg *config.Config) (pipeline.Options, error) {
	popts := pipeline.Options{
		Class:      cfg.Render.Class,
		DarkMode:   cfg.Render.DarkMode,
		HTMLErrors: cfg.Render.HTMLErrors,
		Formats:    cfg.Render.Formats,
		Scale:      cfg.Render.Scale,
		Background: cfg.Render.Background,
		Refresh:    o.refresh,
		Logger:     loggerFromContext(cmd.Context()),
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		popts.Formats = o.formats
	}
	if flags.Changed("dark") {
		popts.DarkMode = o.dark
	}
	if flags.Changed("html-errors") {
		popts.HTMLErrors = o.htmlErrors
	}
	if flags.Changed("class") {
		popts.Class = o.class
	}
	if flags.Changed("scale") {
		popts.Scale = o.scale
	}
	if flags.Changed("background") {
		popts.Background = o.background
	}

	if err := popts.ValidateAndSetDefaults(); err != nil {
		return popts, err
	}
	return popts, nil
}

// validateOutput rejects -o combinations that would be ambiguous. With
// several inputs, -o is created as a directory.
func (o *renderOpts) validateOutput(inputs, formats []string) error {
	switch {
	case o.output == stdoutPath:
		if len(inputs) != 1 || len(formats) != 1 {
			return errors.New(errors.ErrCodeInvalidInput, "-o - needs exactly one input file and one format")
		}
	case o.output != "" && len(inputs) > 1:
		if err := os.MkdirAll(o.output, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return nil
}

// renderFile runs one input through the pipeline and writes every artifact.
func (c *CLI) renderFile(ctx context.Context, runner *pipeline.Runner, input string, popts pipeline.Options, opts *renderOpts, stdout io.Writer) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	spin := startSpinner(ctx, "Rendering "+input)
	res, err := runner.Execute(ctx, pikchr.DecodeSource(data), popts)
	spin.stop()
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	if opts.output == stdoutPath {
		_, err := stdout.Write(res.Artifacts[popts.Formats[0]])
		return err
	}

	var written []string
	for _, format := range popts.Formats {
		path := outputPath(opts.output, input, format, len(popts.Formats))
		if err := writeArtifact(path, res.Artifacts[format]); err != nil {
			return err
		}
		written = append(written, path)
	}

	prog.done("Rendered " + input)
	printSuccess("Rendered %s", input)
	for _, path := range written {
		printFile(path)
	}
	printStats(res.Width, res.Height, res.CacheHit)
	return nil
}

// outputPath decides where one artifact is written.
//
// With no -o the input's extension is replaced by the format. An -o naming
// an existing directory places the file there. An -o with an extension is
// used verbatim for a single format; otherwise its extension is stripped and
// each format appended.
func outputPath(output, input, format string, nFormats int) string {
	if output == "" {
		return basePath("", input) + "." + format
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		name := filepath.Base(basePath("", input))
		return filepath.Join(output, name+"."+format)
	}
	if nFormats == 1 && filepath.Ext(output) != "" {
		return output
	}
	return basePath(output, input) + "." + format
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .pdf, .png), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if errors.ValidateFormat(strings.TrimPrefix(ext, ".")) == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeArtifact writes data to path, creating parent directories.
func writeArtifact(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
