package rules

import (
	"strings"
	"unicode"

	"github.com/dshills/termcheck/internal/classify"
	"github.com/dshills/termcheck/internal/schema"
)

// personName is a Korean source split into surname and given-name syllables.
type personName struct {
	surname string
	given   []string
}

// parsePersonName splits the Korean side of c. Real persons always split;
// other names split only when they look like a personal name.
func parsePersonName(c schema.NameCandidate) (personName, bool) {
	src := koreanSide(c)
	syl := classify.Syllables(src)
	if len(syl) < 2 {
		return personName{}, false
	}
	sur, given := classify.SplitSurname(syl)
	surname := strings.Join(sur, "")
	if c.Category != schema.CategoryRealPerson {
		if len(syl) > 4 || !classify.IsSurname(surname) {
			return personName{}, false
		}
		for _, r := range src {
			if !classify.IsHangulSyllable(r) && !unicode.IsSpace(r) {
				return personName{}, false
			}
		}
	}
	return personName{surname: surname, given: given}, true
}

func koreanSide(c schema.NameCandidate) string {
	if c.Direction == schema.EnToKo {
		return c.Notation
	}
	return c.SourceText
}

func latinSide(c schema.NameCandidate) string {
	if c.Direction == schema.EnToKo {
		return c.SourceText
	}
	return c.Notation
}

// segments splits a Latin notation on spaces and hyphens and keeps only the
// lower-cased letters of each piece.
func segments(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == '-' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		var b strings.Builder
		for _, r := range p {
			if unicode.IsLetter(r) {
				b.WriteRune(unicode.ToLower(r))
			}
		}
		if b.Len() > 0 {
			out = append(out, b.String())
		}
	}
	return out
}

func firstLetter(s string) (rune, bool) {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return r, true
		}
	}
	return 0, false
}

// restLower reports whether every letter after the first one is lower-case.
func restLower(s string) bool {
	seen := false
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if seen && !unicode.IsLower(r) {
			return false
		}
		seen = true
	}
	return true
}
