// Package dbxtest helps in-memory repositories mimic SQL matching.
package dbxtest

import (
	"regexp"
	"strings"
)

// ILike reports whether value matches the LIKE pattern case-insensitively,
// with backslash as the escape character.
func ILike(pattern, value string) bool {
	var b strings.Builder
	b.WriteString("(?is)^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String()).MatchString(value)
}
