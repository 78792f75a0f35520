package pikchr

// Option configures a single [Render] call.
type Option func(*renderConfig)

type renderConfig struct {
	class *string
}

// WithClass adds class="name" to the generated <svg> element.
func WithClass(name string) Option {
	return func(c *renderConfig) { c.class = &name }
}

// Render converts pikchr source into an SVG diagram.
//
// On success the returned Image owns the renderer's buffer and must be
// closed by the caller. Errors are one of:
//   - *EncodingError: source or class contains a NUL byte (nothing rendered)
//   - *RenderError: the renderer rejected the source
//   - ErrUnavailable: the package was built without cgo
//
// Render blocks for the duration of the foreign call and cannot be
// cancelled. It adds no locking of its own; the renderer keeps all state
// per call, so concurrent calls are safe.
//
//	img, err := pikchr.Render(`arrow right 200% "Markdown" "Source"`, pikchr.DefaultFlags())
//	if err != nil {
//	    return err
//	}
//	defer img.Close()
//	fmt.Println(img.Width(), img.Height())
func Render(source string, flags Flags, opts ...Option) (*Image, error) {
	var cfg renderConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := checkNUL("source", source); err != nil {
		return nil, err
	}
	if cfg.class != nil {
		if err := checkNUL("class", *cfg.class); err != nil {
			return nil, err
		}
	}

	raw, err := invoke(source, cfg.class, flags.Bits())
	if err != nil {
		return nil, err
	}
	return interpret(raw)
}
