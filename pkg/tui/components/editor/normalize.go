package editor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// tabWidth is how many spaces the textarea turns a tab into.
const tabWidth = 4

// MaxLines is the longest document the textarea holds without truncating
// it.
const MaxLines = 10000

// Normalize rewrites text the way the textarea stores it: CRLF and lone CR
// become LF, tabs become spaces, other control characters and invalid
// UTF-8 are dropped. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if isNormalized(text) {
		return text
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == utf8.RuneError:
		case r == '\r' || r == '\n':
			b.WriteByte('\n')
		case r == '\t':
			b.WriteString(strings.Repeat(" ", tabWidth))
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNormalized(text string) bool {
	for _, r := range text {
		if r == utf8.RuneError || (r != '\n' && unicode.IsControl(r)) {
			return false
		}
	}
	return true
}
