//go:build cgo

package pikchr

/*
#cgo LDFLAGS: -lpikchr -lm

#include <stdlib.h>
#include <string.h>

// From pikchr.h. The returned buffer comes from malloc() and belongs to the
// caller. On error *pnWidth is negative and the buffer holds the message.
char *pikchr(const char *zText, const char *zClass, unsigned int mFlags,
             int *pnWidth, int *pnHeight);
*/
import "C"

import (
	"sync"
	"unsafe"
)

// This file is the only code in the module that touches foreign memory.
//
// Trust contract with libpikchr:
//   - zText and zClass are only borrowed for the duration of the call.
//   - The result is a NUL-terminated buffer from the libc allocator and must
//     be released with free().
//   - When *pnWidth >= 0 the buffer is valid UTF-8 SVG and *pnHeight >= 0.

// Available reports whether a renderer is linked into this binary.
func Available() bool { return true }

// invoke performs exactly one call into the renderer. The inputs must already
// be free of NUL bytes. Ownership of the returned buffer passes to the caller.
func invoke(source string, class *string, mask Bitmask) (rawResult, error) {
	zText := C.CString(source)
	defer C.free(unsafe.Pointer(zText))

	var zClass *C.char
	if class != nil {
		zClass = C.CString(*class)
		defer C.free(unsafe.Pointer(zClass))
	}

	var width, height C.int
	out := C.pikchr(zText, zClass, C.uint(mask), &width, &height)

	raw := rawResult{width: int(width), height: int(height)}
	if out != nil {
		raw.buf = newCBuffer(out)
	}
	return raw, nil
}

// cBuffer owns a malloc'd, NUL-terminated buffer.
type cBuffer struct {
	once sync.Once
	ptr  *C.char
	n    int
}

// newCBuffer scans p for its terminator once and takes ownership of it.
func newCBuffer(p *C.char) *cBuffer {
	return &cBuffer{ptr: p, n: int(C.strlen(p))}
}

func (b *cBuffer) bytes() []byte {
	if b.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(b.ptr)), b.n)
}

func (b *cBuffer) release() {
	b.once.Do(func() {
		C.free(unsafe.Pointer(b.ptr))
		b.ptr = nil
		b.n = 0
	})
}
