package pikchr

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// DecodeSource converts raw bytes (typically a file's contents) into source
// text. Invalid UTF-8 sequences are replaced with U+FFFD rather than
// rejected, so decoding never fails.
func DecodeSource(b []byte) string {
	return decodeLossy(b)
}

// decodeLossy copies b into a Go string, replacing ill-formed UTF-8.
// The result never aliases b.
func decodeLossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return string(out)
}

// checkNUL rejects strings that cannot be represented as a NUL-terminated
// C string without truncation.
func checkNUL(field, s string) error {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return &EncodingError{Field: field, Offset: i}
	}
	return nil
}
