package comments

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidEscape = errors.New("invalid escape sequence")

// Escape encodes newlines, carriage returns, backslashes and NUL bytes as
// two-character backslash sequences so values survive line-oriented text
// formats.
func Escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Unescape reverses Escape. Any backslash followed by a character outside
// the escapable set, or a trailing lone backslash, is an error.
func Unescape(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return "", fmt.Errorf("%w: trailing %q", ErrInvalidEscape, `\`)
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '0':
			b.WriteByte(0)
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidEscape, s[i-1:i+1])
		}
	}
	return b.String(), nil
}
