// Package classify detects the script of a raw name and guesses whether it
// names a real person. It has no side effects.
package classify

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dshills/termcheck/internal/schema"
)

// Result is the outcome of Classify.
type Result struct {
	Script   schema.Script   `json:"script"`
	Category schema.Category `json:"category"`
	Hangul   int             `json:"hangul_letters"`
	Latin    int             `json:"latin_letters"`
}

// Direction returns the evaluation direction implied by the majority script.
// Ties resolve to KO-EN.
func (r Result) Direction() schema.Direction {
	if r.Latin > r.Hangul {
		return schema.EnToKo
	}
	return schema.KoToEn
}

// Classify returns the script and category guess for text. Mixed script is
// reported as ScriptMixed rather than resolved.
func Classify(text string) (Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{}, &schema.ClassificationError{Input: text, Reason: "empty input"}
	}

	var res Result
	for _, r := range trimmed {
		switch {
		case IsHangul(r):
			res.Hangul++
		case unicode.Is(unicode.Latin, r):
			res.Latin++
		}
	}

	switch {
	case res.Hangul == 0 && res.Latin == 0:
		return Result{}, &schema.ClassificationError{Input: text, Reason: "no Hangul or Latin letters"}
	case res.Latin == 0:
		res.Script = schema.ScriptKorean
		res.Category = guessKorean(trimmed)
	case res.Hangul == 0:
		res.Script = schema.ScriptLatin
		res.Category = guessLatin(trimmed)
	default:
		res.Script = schema.ScriptMixed
		res.Category = schema.CategoryOther
	}
	return res, nil
}

// IsHangul reports whether r is a Hangul syllable or compatibility jamo.
func IsHangul(r rune) bool {
	return IsHangulSyllable(r) ||
		(r >= 0x1100 && r <= 0x11FF) ||
		(r >= 0x3130 && r <= 0x318F)
}

// IsHangulSyllable reports whether r is a precomposed Hangul syllable.
func IsHangulSyllable(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}

// Syllables returns the Hangul syllables of s in order, skipping everything
// else.
func Syllables(s string) []string {
	var out []string
	for _, r := range s {
		if IsHangulSyllable(r) {
			out = append(out, string(r))
		}
	}
	return out
}

// SplitSurname splits a Korean full name into surname and given-name
// syllables. Two-syllable surnames are recognised from a fixed list.
func SplitSurname(syllables []string) (surname, given []string) {
	if len(syllables) == 0 {
		return nil, nil
	}
	if len(syllables) >= 3 && compoundSurnames[syllables[0]+syllables[1]] {
		return syllables[:2], syllables[2:]
	}
	return syllables[:1], syllables[1:]
}

// IsSurname reports whether s is a known Korean surname.
func IsSurname(s string) bool {
	return surnames[s] || compoundSurnames[s]
}

func guessKorean(text string) schema.Category {
	for _, r := range text {
		if !IsHangulSyllable(r) && !unicode.IsSpace(r) {
			return schema.CategoryOther
		}
	}
	syl := Syllables(text)
	if len(syl) < 2 || len(syl) > 4 {
		return schema.CategoryOther
	}
	sur, given := SplitSurname(syl)
	if len(given) == 0 || !IsSurname(strings.Join(sur, "")) {
		return schema.CategoryOther
	}
	return schema.CategoryRealPerson
}

var personWordRe = regexp.MustCompile(`^\p{Lu}\p{Ll}*(?:['-]\p{L}\p{Ll}*)?\.?$`)

func guessLatin(text string) schema.Category {
	words := strings.Fields(text)
	if len(words) < 2 || len(words) > 3 {
		return schema.CategoryOther
	}
	for _, w := range words {
		if !personWordRe.MatchString(w) || organisationWords[strings.ToLower(strings.TrimSuffix(w, "."))] {
			return schema.CategoryOther
		}
	}
	return schema.CategoryRealPerson
}

var surnames = toSet(
	"김", "이", "박", "최", "정", "강", "조", "윤", "장", "임", "한", "오", "서", "신",
	"권", "황", "안", "송", "류", "유", "전", "홍", "고", "문", "양", "손", "배", "백",
	"허", "남", "심", "노", "하", "곽", "성", "차", "주", "우", "구", "민", "진", "나",
	"지", "엄", "변", "채", "원", "천", "방", "공", "현", "함", "염", "여", "추", "도",
	"소", "석", "선", "설", "마", "길", "연", "위", "표", "명", "기", "반", "왕", "금",
	"옥", "육", "인", "맹", "제", "모", "탁", "국", "어", "은", "편", "용", "예", "경",
	"봉", "사", "부", "라", "태", "승", "계", "피", "두", "감", "음", "동",
)

var compoundSurnames = toSet("남궁", "황보", "제갈", "선우", "독고", "사공", "서문", "동방")

var organisationWords = toSet(
	"company", "corporation", "corp", "inc", "ltd", "co", "group", "university",
	"bank", "entertainment", "studios", "studio", "pictures", "films", "media",
	"city", "province", "river", "mountain", "island", "station", "hospital",
	"school", "museum", "foundation", "agency", "the", "of", "and",
)

func toSet(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
