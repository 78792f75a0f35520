package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// Output formats understood by the render pipeline.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// Formats lists every supported output format in canonical order.
var Formats = []string{FormatSVG, FormatPNG, FormatPDF}

// maxClassLength bounds the class attribute accepted from callers.
const maxClassLength = 256

// classNameRegex matches a whitespace-separated list of CSS class tokens.
var classNameRegex = regexp.MustCompile(`^-?[_a-zA-Z][_a-zA-Z0-9-]*(\s+-?[_a-zA-Z][_a-zA-Z0-9-]*)*$`)

// ValidateClassName validates the extra class attribute added to the
// generated <svg> element. An empty name is valid and means no class.
//
// The rules are conservative:
//   - Maximum length of 256 characters
//   - No control characters or null bytes
//   - No quotes or angle brackets
//   - Each space-separated token must be a plain CSS identifier
func ValidateClassName(name string) error {
	if name == "" {
		return nil
	}

	if len(name) > maxClassLength {
		return New(ErrCodeInvalidInput, "class name too long (max %d characters)", maxClassLength)
	}

	for _, r := range name {
		if r != ' ' && unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "class name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, `"'<>&`) {
		return New(ErrCodeInvalidInput, "class name contains invalid characters: %q", name)
	}

	if !classNameRegex.MatchString(strings.TrimSpace(name)) {
		return New(ErrCodeInvalidInput, "invalid class name: %q", name)
	}

	return nil
}

// ValidateFormat validates a single output format name.
func ValidateFormat(format string) error {
	if format == "" {
		return New(ErrCodeInvalidFormat, "format cannot be empty")
	}
	for _, f := range Formats {
		if format == f {
			return nil
		}
	}
	return New(ErrCodeInvalidFormat, "unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// ValidateFormats validates a list of output formats. The list must be
// non-empty and free of duplicates.
func ValidateFormats(formats []string) error {
	if len(formats) == 0 {
		return New(ErrCodeInvalidFormat, "at least one format is required")
	}

	seen := make(map[string]bool, len(formats))
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
		if seen[f] {
			return New(ErrCodeInvalidFormat, "duplicate format %q", f)
		}
		seen[f] = true
	}
	return nil
}

// ValidateScale validates the raster scale factor used for PNG output.
func ValidateScale(scale float64) error {
	if scale <= 0 || scale > 16 {
		return New(ErrCodeInvalidInput, "scale must be in (0, 16], got %g", scale)
	}
	return nil
}

// ValidateRedisURL validates a Redis connection URL.
// It ensures the URL has a scheme the Redis client understands.
func ValidateRedisURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfig, "redis URL cannot be empty")
	}

	for _, scheme := range []string{"redis://", "rediss://", "unix://"} {
		if strings.HasPrefix(rawURL, scheme) {
			return nil
		}
	}
	return New(ErrCodeInvalidConfig, "redis URL must use redis, rediss or unix scheme")
}
