package pikchr

// unknownError is reported when the renderer signals failure without a
// readable message.
const unknownError = "unknown pikchr error"

// foreignBuffer is a NUL-terminated allocation produced by the renderer.
//
// bytes returns a borrowed view of the contents up to (not including) the
// terminator; the view is only valid until release. release returns the
// allocation to the allocator that produced it and must be safe to call more
// than once.
type foreignBuffer interface {
	bytes() []byte
	release()
}

// rawResult is what one foreign call hands back. A negative width means buf
// holds error text. It never leaves this package.
type rawResult struct {
	buf    foreignBuffer
	width  int
	height int
}

// interpret decides success or failure from a raw result. This is the only
// place the width sentinel is inspected.
//
// On failure the message is copied out and the buffer released before
// returning. On success ownership of the buffer moves into the Image without
// copying. A missing buffer on either path is reported as a RenderError.
func interpret(raw rawResult) (*Image, error) {
	if raw.width < 0 {
		msg := unknownError
		if raw.buf != nil {
			if b := raw.buf.bytes(); len(b) > 0 {
				msg = decodeLossy(b)
			}
			raw.buf.release()
		}
		return nil, &RenderError{Message: msg}
	}
	if raw.buf == nil {
		return nil, &RenderError{Message: "pikchr returned no output"}
	}
	return newImage(raw.buf, raw.width, raw.height), nil
}
