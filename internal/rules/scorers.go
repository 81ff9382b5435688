package rules

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/classify"
	"github.com/dshills/termcheck/internal/schema"
)

func scoreHyphenation(_ catalogue.Rule, c schema.NameCandidate, _ *catalogue.Table) (int, string) {
	name, ok := parsePersonName(c)
	if !ok {
		return 100, "no given-name structure in source; hyphenation not assessed"
	}
	notation := latinSide(c)
	expected := len(name.given) - 1
	hyphens := strings.Count(notation, "-")
	words := strings.Fields(notation)

	if expected <= 0 {
		if hyphens == 0 {
			return 100, "single-syllable given name takes no hyphen"
		}
		return 50, "hyphen present but the given name has a single syllable"
	}
	if hyphens == 0 {
		return 0, fmt.Sprintf("no hyphen between the %d given-name syllables", len(name.given))
	}
	if len(words) == 2 && !strings.Contains(words[0], "-") &&
		strings.Count(words[1], "-") == expected && !slices.Contains(strings.Split(words[1], "-"), "") {
		return 100, "hyphen placed between given-name syllables"
	}
	return 50, "hyphen present but misplaced; expected Surname Given-name"
}

func scoreCapitalization(r catalogue.Rule, c schema.NameCandidate, _ *catalogue.Table) (int, string) {
	words := strings.Fields(latinSide(c))
	if len(words) == 0 {
		return 0, "empty notation"
	}
	var bad []string
	for _, w := range words {
		if !wordCapitalized(w, r.Strict) {
			bad = append(bad, w)
		}
	}
	score := (len(words) - len(bad)) * 100 / len(words)
	if len(bad) == 0 {
		return score, "every word is capitalized correctly"
	}
	return score, fmt.Sprintf("%d of %d words deviate: %s", len(bad), len(words), strings.Join(bad, ", "))
}

// wordCapitalized checks the first letter is upper-case and the first letter
// after each hyphen lower-case. strict also requires the rest lower-case.
func wordCapitalized(w string, strict bool) bool {
	parts := strings.Split(w, "-")
	for i, p := range parts {
		r, ok := firstLetter(p)
		if !ok {
			continue
		}
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if i > 0 && !unicode.IsLower(r) {
			return false
		}
	}
	return !strict || restLower(w)
}

func scoreStageName(_ catalogue.Rule, c schema.NameCandidate, _ *catalogue.Table) (int, string) {
	words := strings.Fields(latinSide(c))
	if len(words) == 0 {
		return 0, "empty notation"
	}
	for _, w := range words {
		r, ok := firstLetter(w)
		if !ok {
			continue
		}
		if !unicode.IsUpper(r) || !restLower(w) {
			return 0, fmt.Sprintf("stage name word %q must be capitalized with the rest lower-case", w)
		}
	}
	return 100, "stage name uses first-letter capitals"
}

func scoreNorthKorean(_ catalogue.Rule, c schema.NameCandidate, _ *catalogue.Table) (int, string) {
	words := strings.Fields(latinSide(c))
	if len(words) < 2 {
		return 0, "notation has no separate given name"
	}
	given := words[1:]
	if name, ok := parsePersonName(c); ok && len(name.given) < 2 {
		if len(given) == 1 {
			return 100, "single-syllable given name needs no normalization"
		}
		return 0, "given name split into several words"
	}

	hyphenated := len(given) == 1 && strings.Count(given[0], "-") == 1
	if len(given) == 1 && !strings.Contains(given[0], "-") {
		return 100, "not applicable: no space between given-name syllables"
	}
	var second string
	switch {
	case hyphenated:
		second = given[0][strings.Index(given[0], "-")+1:]
	case len(given) >= 2:
		second = given[1]
	}
	r, ok := firstLetter(second)
	lowered := ok && unicode.IsLower(r)

	switch {
	case hyphenated && lowered:
		return 100, "space replaced by hyphen and second syllable lower-cased"
	case hyphenated:
		return 0, "space replaced by hyphen but second syllable not lower-cased; the transformation is atomic"
	case lowered:
		return 0, "second syllable lower-cased but the space was kept; the transformation is atomic"
	}
	return 0, "space between given-name syllables must become a hyphen with a lower-case second syllable"
}

// unit is one romanization unit: a syllable, or a whole surname.
type unit struct {
	text    string
	surname bool
}

func romanizationUnits(c schema.NameCandidate) []unit {
	if name, ok := parsePersonName(c); ok {
		out := []unit{{text: name.surname, surname: true}}
		for _, g := range name.given {
			out = append(out, unit{text: g})
		}
		return out
	}
	var out []unit
	for _, s := range classify.Syllables(koreanSide(c)) {
		out = append(out, unit{text: s})
	}
	return out
}

func scoreRomanization(_ catalogue.Rule, c schema.NameCandidate, t *catalogue.Table) (int, string) {
	units := romanizationUnits(c)
	if len(units) == 0 {
		return 0, "no Hangul syllables to check against the table"
	}
	segs := segments(latinSide(c))
	if len(segs) == 0 {
		return 0, "empty notation"
	}

	if len(segs) != len(units) && parses(units, strings.Join(segs, ""), t) {
		return 100, "all syllables follow the romanization table"
	}

	matched := 0
	var misses []string
	for i, u := range units {
		if i < len(segs) && t.Accepts(u.text, segs[i], u.surname) {
			matched++
			continue
		}
		want := t.Spellings(u.text, u.surname)
		got := "-"
		if i < len(segs) {
			got = segs[i]
		}
		misses = append(misses, fmt.Sprintf("%s→%s (table: %s)", u.text, got, strings.Join(want, "/")))
	}
	score := matched * 100 / len(units)
	if len(misses) == 0 {
		return score, "all syllables follow the romanization table"
	}
	return score, fmt.Sprintf("%d of %d syllables match the table; %s", matched, len(units), strings.Join(misses, "; "))
}

// parses reports whether letters is exactly the concatenation of one
// accepted spelling per unit, in order.
func parses(units []unit, letters string, t *catalogue.Table) bool {
	reach := map[int]bool{0: true}
	for _, u := range units {
		next := map[int]bool{}
		for pos := range reach {
			for _, sp := range t.Spellings(u.text, u.surname) {
				if strings.HasPrefix(letters[pos:], sp) {
					next[pos+len(sp)] = true
				}
			}
		}
		if len(next) == 0 {
			return false
		}
		reach = next
	}
	return reach[len(letters)]
}

func scorePriorNotation(_ catalogue.Rule, c schema.NameCandidate, _ *catalogue.Table) (int, string) {
	candidate := normalizeSpace(c.Notation)
	var priors []string
	var sources []string
	for _, ev := range c.Evidence {
		p := normalizeSpace(ev.Payload)
		if p == "" || !catalogue.IsPriorNotationSource(ev.SourceID) {
			continue
		}
		if p == candidate {
			return 100, fmt.Sprintf("matches the notation on record in %s", ev.SourceID)
		}
		if !slices.Contains(priors, p) {
			priors = append(priors, p)
			sources = append(sources, ev.SourceID)
		}
	}
	if len(priors) == 0 {
		return 100, "no prior notation on record"
	}
	parts := make([]string, len(priors))
	for i := range priors {
		parts[i] = fmt.Sprintf("%q (%s)", priors[i], sources[i])
	}
	return 0, "differs from the notation on record: " + strings.Join(parts, ", ")
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func scoreHangulNotation(_ catalogue.Rule, c schema.NameCandidate, _ *catalogue.Table) (int, string) {
	total, hangul := 0, 0
	var foreign []string
	for _, r := range koreanSide(c) {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if classify.IsHangulSyllable(r) || r == '·' {
			hangul++
		} else if len(foreign) < 5 {
			foreign = append(foreign, string(r))
		}
	}
	if total == 0 {
		return 0, "empty notation"
	}
	score := hangul * 100 / total
	if hangul == total {
		return score, "notation is written in Hangul"
	}
	return score, fmt.Sprintf("%d of %d characters are not Hangul syllables: %s", total-hangul, total, strings.Join(foreign, " "))
}

func scoreWordSpacing(_ catalogue.Rule, c schema.NameCandidate, t *catalogue.Table) (int, string) {
	split := func(s string) []string {
		return strings.FieldsFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == '·' })
	}
	latin, korean := split(latinSide(c)), split(koreanSide(c))
	if len(latin) == len(korean) {
		return 100, fmt.Sprintf("word division kept (%d words)", len(korean))
	}
	// Korean personal names are written as one word.
	if len(korean) == 1 && len(latin) > 1 {
		if name, ok := parsePersonName(c); ok && classify.IsSurname(name.surname) &&
			t.Accepts(name.surname, strings.Trim(latin[0], ",."), true) {
			return 100, "Korean personal name written as one word"
		}
	}
	return 0, fmt.Sprintf("source has %d words but notation has %d", len(latin), len(korean))
}
