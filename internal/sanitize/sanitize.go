// Package sanitize strips markup-like fragments from user input before it is
// stored or forwarded to a provider.
package sanitize

import (
	"path/filepath"
	"regexp"
	"strings"
)

// tagPattern matches a "<" and everything up to the next ">", or to the end of
// the input when the tag is never closed. Every "<" starts a match, so the
// output of Text never contains one.
var tagPattern = regexp.MustCompile(`<[^>]*>?`)

// Text removes all tag-like substrings from raw. It is idempotent.
func Text(raw string) string {
	return tagPattern.ReplaceAllString(raw, "")
}

// Filename reduces an uploaded file name to a sanitized base name.
// It returns "" when nothing usable remains.
func Filename(name string) string {
	base := filepath.Base(filepath.ToSlash(strings.TrimSpace(name)))
	base = strings.TrimSpace(Text(base))
	if base == "." || base == "/" {
		return ""
	}
	return base
}
