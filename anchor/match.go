// CLAUDE:SUMMARY FuzzyMatcher: exact substring search with a whitespace-insensitive fallback mapped back to raw offsets.
package anchor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match is a byte span [Start, End) in the searched text.
type Match struct {
	Start int
	End   int
}

// Len is the byte length of the match.
func (m Match) Len() int { return m.End - m.Start }

// ignorable reports runes that never count toward a match: whitespace
// (including NBSP) and zero-width characters.
func ignorable(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\ufeff':
		return true
	}
	return unicode.IsSpace(r)
}

// Strip removes every ignorable rune from s.
func Strip(s string) string {
	return strings.Map(func(r rune) rune {
		if ignorable(r) {
			return -1
		}
		return r
	}, s)
}

// FindBestMatch locates target in text. An exact occurrence wins; otherwise
// both strings are compared with whitespace removed and the hit is mapped
// back to raw offsets. The first occurrence is returned.
func FindBestMatch(text, target string) (Match, bool) {
	if strings.TrimSpace(target) == "" {
		return Match{}, false
	}
	if i := strings.Index(text, target); i >= 0 {
		return Match{Start: i, End: i + len(target)}, true
	}

	needle := Strip(target)
	if needle == "" {
		return Match{}, false
	}
	var stripped strings.Builder
	pos := make([]int, 0, len(text))
	for i, r := range text {
		if ignorable(r) {
			continue
		}
		_, n := utf8.DecodeRuneInString(text[i:])
		stripped.WriteString(text[i : i+n])
		for j := range n {
			pos = append(pos, i+j)
		}
	}
	k := strings.Index(stripped.String(), needle)
	if k < 0 {
		return Match{}, false
	}
	return Match{Start: pos[k], End: pos[k+len(needle)-1] + 1}, true
}
