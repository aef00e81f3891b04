package dictionary

import (
	"strings"
	"unicode"
)

// CleanSelection prepares selected text for a lookup: punctuation is
// stripped, letters are lower-cased and whitespace runs collapse to a
// single space.
func CleanSelection(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
		case unicode.IsPunct(r):
		default:
			if space {
				b.WriteByte(' ')
				space = false
			}
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
