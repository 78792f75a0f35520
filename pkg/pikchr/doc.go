// Package pikchr is a memory-safe binding for the pikchr diagramming
// language (https://pikchr.org). It converts PIC-like markup into SVG by
// calling the C renderer from libpikchr.
//
// # Rendering
//
// [Render] takes source text, [Flags] and optional settings such as
// [WithClass], and returns either an [*Image] or an error:
//
//	img, err := pikchr.Render(src, pikchr.DefaultFlags())
//	if err != nil {
//	    var rerr *pikchr.RenderError
//	    if errors.As(err, &rerr) {
//	        fmt.Fprintln(os.Stderr, rerr.Message)
//	    }
//	    return err
//	}
//	defer img.Close()
//	img.WriteTo(os.Stdout)
//
// # Ownership
//
// The renderer returns a buffer allocated with malloc. On success the
// buffer is owned by the returned Image and freed by [Image.Close] (or by a
// runtime cleanup if the Image is dropped without closing). On failure the
// message is copied into a [*RenderError] and the buffer is freed before
// Render returns. No other code path frees renderer memory.
//
// # Errors
//
// By default error messages are plain text. Call [Flags.GenerateHTMLErrors]
// to get HTML fragments suitable for embedding in a web page.
//
// # Building
//
// The package needs cgo and a libpikchr shared or static library built from
// pikchr.c:
//
//	cc -O2 -fPIC -shared -o libpikchr.so pikchr.c -lm
//
// Without cgo the package still compiles; [Available] reports false and
// Render returns [ErrUnavailable].
package pikchr
