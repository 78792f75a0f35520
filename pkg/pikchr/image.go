package pikchr

import (
	"errors"
	"io"
	"runtime"
	"sync"
)

// ErrClosed is returned by [Image.WriteTo] after the image has been closed.
var ErrClosed = errors.New("pikchr: image is closed")

// Image is a rendered pikchr diagram.
//
// An Image exclusively owns the SVG buffer allocated by the renderer. The
// buffer is released exactly once: by [Image.Close], or by a runtime cleanup
// if the Image becomes unreachable without being closed. Closing twice is a
// no-op. After Close every accessor returns its zero value.
//
// The text is valid UTF-8; this is part of the renderer's contract for
// successful output and is not re-checked here.
//
// An Image must not be copied after creation. Use [Image.Transfer] to hand
// ownership to another owner.
type Image struct {
	mu      sync.Mutex
	buf     foreignBuffer
	width   int
	height  int
	cleanup runtime.Cleanup
}

// newImage takes ownership of buf.
func newImage(buf foreignBuffer, width, height int) *Image {
	img := &Image{buf: buf, width: width, height: height}
	img.cleanup = runtime.AddCleanup(img, foreignBuffer.release, buf)
	return img
}

// String returns the SVG text. The returned string is a copy and remains
// valid after Close.
func (img *Image) String() string {
	img.mu.Lock()
	defer img.mu.Unlock()
	if img.buf == nil {
		return ""
	}
	return string(img.buf.bytes())
}

// Bytes returns a copy of the SVG text.
func (img *Image) Bytes() []byte {
	img.mu.Lock()
	defer img.mu.Unlock()
	if img.buf == nil {
		return nil
	}
	return append([]byte(nil), img.buf.bytes()...)
}

// WriteTo writes the SVG text to w straight from the renderer's buffer.
func (img *Image) WriteTo(w io.Writer) (int64, error) {
	img.mu.Lock()
	defer img.mu.Unlock()
	if img.buf == nil {
		return 0, ErrClosed
	}
	n, err := w.Write(img.buf.bytes())
	return int64(n), err
}

// Len returns the length of the SVG text in bytes.
func (img *Image) Len() int {
	img.mu.Lock()
	defer img.mu.Unlock()
	if img.buf == nil {
		return 0
	}
	return len(img.buf.bytes())
}

// Width returns the diagram width reported by the renderer.
func (img *Image) Width() int {
	img.mu.Lock()
	defer img.mu.Unlock()
	if img.buf == nil {
		return 0
	}
	return img.width
}

// Height returns the diagram height reported by the renderer.
func (img *Image) Height() int {
	img.mu.Lock()
	defer img.mu.Unlock()
	if img.buf == nil {
		return 0
	}
	return img.height
}

// Closed reports whether the buffer has been released or transferred.
func (img *Image) Closed() bool {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.buf == nil
}

// Close releases the renderer's buffer. It is safe to call more than once.
func (img *Image) Close() error {
	img.mu.Lock()
	defer img.mu.Unlock()
	if img.buf == nil {
		return nil
	}
	img.cleanup.Stop()
	img.buf.release()
	img.buf = nil
	return nil
}

// Transfer moves ownership of the buffer to a new Image and leaves img
// closed. Transferring a closed image yields a closed image.
func (img *Image) Transfer() *Image {
	img.mu.Lock()
	defer img.mu.Unlock()
	if img.buf == nil {
		return &Image{}
	}
	img.cleanup.Stop()
	dst := newImage(img.buf, img.width, img.height)
	img.buf = nil
	return dst
}
