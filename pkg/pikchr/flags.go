package pikchr

// Bitmask is the flag word passed as mFlags to the foreign renderer.
type Bitmask uint32

// Flag bits understood by the renderer. Values match PIKCHR_PLAINTEXT_ERRORS
// and PIKCHR_DARK_MODE in pikchr.h.
const (
	// FlagPlainTextErrors makes error messages come out as text/plain
	// instead of HTML.
	FlagPlainTextErrors Bitmask = 0x0001

	// FlagDarkMode alters colour choices for dark backgrounds.
	FlagDarkMode Bitmask = 0x0002
)

// Flags configures a render call.
//
// The zero value is the default configuration: plain text errors and
// light-mode diagrams. Flags are changed only through the named setters,
// which return the receiver so calls can be chained:
//
//	flags := pikchr.DefaultFlags()
//	flags.UseDarkMode().GenerateHTMLErrors()
type Flags struct {
	htmlErrors bool
	darkMode   bool
}

// DefaultFlags returns plain text errors and light-mode diagrams.
func DefaultFlags() Flags {
	return Flags{}
}

// PlainErrors reports whether errors will be generated as plain text.
func (f *Flags) PlainErrors() bool {
	return !f.htmlErrors
}

// GeneratePlainErrors requests plain text error messages.
func (f *Flags) GeneratePlainErrors() *Flags {
	f.htmlErrors = false
	return f
}

// GenerateHTMLErrors requests HTML-encoded error messages.
func (f *Flags) GenerateHTMLErrors() *Flags {
	f.htmlErrors = true
	return f
}

// DarkMode reports whether the dark-mode palette will be used.
func (f *Flags) DarkMode() bool {
	return f.darkMode
}

// UseDarkMode sets the dark-mode flag.
func (f *Flags) UseDarkMode() *Flags {
	f.darkMode = true
	return f
}

// ClearDarkMode clears the dark-mode flag.
func (f *Flags) ClearDarkMode() *Flags {
	f.darkMode = false
	return f
}

// Bits encodes the flags as the bitmask expected by the renderer.
// Each enabled option contributes exactly one bit.
func (f Flags) Bits() Bitmask {
	var m Bitmask
	if !f.htmlErrors {
		m |= FlagPlainTextErrors
	}
	if f.darkMode {
		m |= FlagDarkMode
	}
	return m
}

// String returns a short description such as "plain-errors,dark-mode".
func (f Flags) String() string {
	s := "html-errors"
	if !f.htmlErrors {
		s = "plain-errors"
	}
	if f.darkMode {
		s += ",dark-mode"
	}
	return s
}
