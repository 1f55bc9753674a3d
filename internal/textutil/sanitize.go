package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// unsafeFileChars matches characters that are invalid in Windows or POSIX
// file names.
var unsafeFileChars = regexp.MustCompile(`[\\/:*?"<>|]`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// SafeFilename turns name into a file name ending in suffix. Unsafe
// characters become underscores, surrounding underscores are trimmed and an
// empty result falls back to "output".
func SafeFilename(name, suffix string) string {
	sanitized := unsafeFileChars.ReplaceAllString(norm.NFC.String(name), "_")
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "output"
	}
	return sanitized + suffix
}

// CleanTitle normalizes a title scraped from tool output: NFC composed,
// control characters dropped, whitespace collapsed.
func CleanTitle(value string) string {
	value = norm.NFC.String(value)
	value = strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, value)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(value, " "))
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// Truncate shortens value to at most limit runes, appending an ellipsis when
// anything was cut.
func Truncate(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit == 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}
