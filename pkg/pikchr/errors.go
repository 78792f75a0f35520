package pikchr

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned by [Render] when the binary was built without
// cgo and therefore has no renderer linked in.
var ErrUnavailable = errors.New("pikchr renderer unavailable (built without cgo)")

// RenderError is returned when the renderer rejects its input.
//
// Message is the renderer's own error text, decoded from the foreign buffer
// and owned by Go; it outlives the foreign allocation, which is released as
// soon as the message has been copied. Depending on the [Flags] used, the
// text is either plain or an HTML fragment.
type RenderError struct {
	Message string
}

// Error returns the renderer's message verbatim.
func (e *RenderError) Error() string { return e.Message }

// EncodingError is returned when a string cannot be passed to the renderer
// because it contains a NUL byte. It is detected before the foreign call.
type EncodingError struct {
	Field  string // "source" or "class"
	Offset int    // byte offset of the first NUL
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("pikchr: %s contains a NUL byte at offset %d", e.Field, e.Offset)
}
