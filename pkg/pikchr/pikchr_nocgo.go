//go:build !cgo

package pikchr

// Available reports whether a renderer is linked into this binary.
func Available() bool { return false }

func invoke(string, *string, Bitmask) (rawResult, error) {
	return rawResult{}, ErrUnavailable
}
