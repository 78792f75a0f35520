package pikchr

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

func TestImageCloseIdempotent(t *testing.T) {
	buf := newFakeBuffer("<svg></svg>")
	img := newImage(buf, 1, 2)

	for i := 0; i < 3; i++ {
		if err := img.Close(); err != nil {
			t.Fatalf("Close #%d: %v", i+1, err)
		}
	}
	if buf.count() != 1 {
		t.Errorf("released %d times, want 1", buf.count())
	}
	if !img.Closed() {
		t.Error("Closed() should be true after Close")
	}
}

func TestImageAccessorsAfterClose(t *testing.T) {
	img := newImage(newFakeBuffer("<svg></svg>"), 3, 4)
	_ = img.Close()

	if img.String() != "" {
		t.Errorf("String() = %q, want empty", img.String())
	}
	if img.Bytes() != nil {
		t.Error("Bytes() should be nil after Close")
	}
	if img.Len() != 0 || img.Width() != 0 || img.Height() != 0 {
		t.Errorf("Len/Width/Height = %d/%d/%d, want zeros", img.Len(), img.Width(), img.Height())
	}
	var out bytes.Buffer
	if _, err := img.WriteTo(&out); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteTo after Close: err = %v, want ErrClosed", err)
	}
}

func TestImageBytesIsCopy(t *testing.T) {
	buf := newFakeBuffer("<svg/>")
	img := newImage(buf, 0, 0)
	defer img.Close()

	b := img.Bytes()
	b[0] = 'X'
	if img.String() != "<svg/>" {
		t.Errorf("mutating Bytes() changed the image: %q", img.String())
	}
}

func TestImageStringSurvivesClose(t *testing.T) {
	img := newImage(newFakeBuffer("<svg/>"), 0, 0)
	s := img.String()
	_ = img.Close()
	if s != "<svg/>" {
		t.Errorf("String() result changed after Close: %q", s)
	}
}

func TestImageWriteTo(t *testing.T) {
	img := newImage(newFakeBuffer("<svg>abc</svg>"), 0, 0)
	defer img.Close()

	var out bytes.Buffer
	n, err := img.WriteTo(&out)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(img.Len()) || out.String() != "<svg>abc</svg>" {
		t.Errorf("WriteTo wrote %d bytes %q", n, out.String())
	}
}

func TestImageTransfer(t *testing.T) {
	buf := newFakeBuffer("<svg/>")
	src := newImage(buf, 7, 8)

	dst := src.Transfer()
	if !src.Closed() {
		t.Error("source should be closed after Transfer")
	}
	if dst.Closed() || dst.Width() != 7 || dst.Height() != 8 || dst.String() != "<svg/>" {
		t.Errorf("destination did not receive ownership: %dx%d %q", dst.Width(), dst.Height(), dst.String())
	}

	_ = src.Close()
	if buf.count() != 0 {
		t.Fatal("closing the moved-from image must not release the buffer")
	}
	_ = dst.Close()
	_ = dst.Close()
	if buf.count() != 1 {
		t.Errorf("released %d times, want 1", buf.count())
	}
}

func TestImageTransferClosed(t *testing.T) {
	img := newImage(newFakeBuffer("x"), 1, 1)
	_ = img.Close()

	moved := img.Transfer()
	if !moved.Closed() {
		t.Error("transferring a closed image should yield a closed image")
	}
	if err := moved.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestImageConcurrentClose(t *testing.T) {
	buf := newFakeBuffer("<svg/>")
	img := newImage(buf, 1, 1)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = img.String()
			_ = img.Close()
		}()
	}
	wg.Wait()

	if buf.count() != 1 {
		t.Errorf("released %d times, want 1", buf.count())
	}
}
