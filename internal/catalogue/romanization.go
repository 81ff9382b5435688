package catalogue

import (
	"maps"
	"slices"
	"strings"
)

const hangulBase = 0xAC00

var (
	initials = []string{"g", "kk", "n", "d", "tt", "r", "m", "b", "pp", "s", "ss", "", "j", "jj", "ch", "k", "t", "p", "h"}
	medials  = []string{"a", "ae", "ya", "yae", "eo", "e", "yeo", "ye", "o", "wa", "wae", "oe", "yo", "u", "wo", "we", "wi", "yu", "eu", "ui", "i"}
	// finals uses the representative sound of each batchim.
	finals = []string{"", "k", "k", "k", "n", "n", "n", "t", "l", "k", "m", "l", "l", "l", "p", "l", "m", "p", "p", "t", "t", "ng", "t", "t", "k", "t", "p", "t"}
)

// surnameConventions are the customary spellings accepted for surnames in
// addition to their Revised Romanization.
var surnameConventions = map[string][]string{
	"김": {"Kim", "Gim"}, "이": {"Lee", "Yi", "Rhee", "I"}, "박": {"Park", "Pak", "Bak"},
	"최": {"Choi", "Choe"}, "정": {"Jung", "Jeong", "Chung"}, "강": {"Kang", "Gang"},
	"조": {"Cho", "Jo"}, "윤": {"Yoon", "Yun"}, "장": {"Jang", "Chang"},
	"임": {"Lim", "Im", "Rim"}, "한": {"Han"}, "오": {"Oh", "O"}, "서": {"Seo", "Suh"},
	"신": {"Shin", "Sin"}, "권": {"Kwon", "Gwon"}, "황": {"Hwang"}, "안": {"Ahn", "An"},
	"송": {"Song"}, "류": {"Ryu", "Yoo", "Yu"}, "유": {"Yoo", "Yu"}, "전": {"Jeon", "Jun", "Chun"},
	"홍": {"Hong"}, "고": {"Ko", "Go"}, "문": {"Moon", "Mun"}, "양": {"Yang"},
	"손": {"Son", "Sohn"}, "배": {"Bae"}, "백": {"Baek", "Paik"}, "허": {"Heo", "Huh"},
	"남": {"Nam"}, "심": {"Shim", "Sim"}, "노": {"Noh", "No", "Roh"}, "하": {"Ha"},
	"곽": {"Kwak", "Gwak"}, "성": {"Sung", "Seong"}, "차": {"Cha"}, "주": {"Joo", "Ju"},
	"우": {"Woo", "U"}, "구": {"Koo", "Gu"}, "민": {"Min"}, "진": {"Jin"}, "나": {"Na", "Ra"},
	"지": {"Ji", "Jee"}, "엄": {"Eom", "Um"}, "변": {"Byun", "Byeon"}, "채": {"Chae"},
	"원": {"Won"}, "천": {"Cheon", "Chun"}, "방": {"Bang"}, "공": {"Kong", "Gong"},
	"현": {"Hyun", "Hyeon"}, "함": {"Ham"}, "염": {"Yeom", "Yum"}, "여": {"Yeo", "Yuh"},
	"추": {"Choo", "Chu"}, "도": {"Do", "Doh"}, "석": {"Seok", "Suk"}, "선": {"Sun", "Seon"},
	"설": {"Seol", "Sul"}, "마": {"Ma"}, "길": {"Gil", "Kil"}, "연": {"Yeon", "Yun"},
	"위": {"Wi", "Wee"}, "표": {"Pyo"}, "명": {"Myung", "Myeong"}, "기": {"Ki", "Gi"},
	"반": {"Ban", "Pan"}, "왕": {"Wang"}, "금": {"Keum", "Geum"}, "옥": {"Ok"},
	"육": {"Yuk", "Yook"}, "인": {"In"}, "맹": {"Maeng"}, "제": {"Je"}, "모": {"Mo"},
	"탁": {"Tak"}, "국": {"Kook", "Guk"}, "어": {"Eo"}, "은": {"Eun"}, "편": {"Pyeon"},
	"용": {"Yong"}, "예": {"Ye"}, "경": {"Kyung", "Gyeong"}, "봉": {"Bong"}, "사": {"Sa"},
	"부": {"Boo", "Bu"}, "라": {"Ra", "La"}, "태": {"Tae"}, "승": {"Seung"},
	"계": {"Kye", "Gye"}, "피": {"Pi", "Pee"}, "두": {"Doo", "Du"}, "감": {"Kam", "Gam"},
	"음": {"Eum"}, "동": {"Dong"},
	"남궁": {"Namgoong", "Namgung"}, "황보": {"Hwangbo"}, "제갈": {"Jegal"},
	"선우": {"Sunwoo", "Seonu"}, "독고": {"Dokgo", "Tokko"}, "사공": {"Sagong"},
	"서문": {"Seomun"}, "동방": {"Dongbang"},
}

// Table is the NIKL-derived romanization lookup. Syllables are romanized in
// isolation, as the rules require for personal names.
type Table struct {
	surnames map[string][]string
}

// NewTable returns the built-in table.
func NewTable() *Table {
	return &Table{surnames: maps.Clone(surnameConventions)}
}

func (t *Table) clone() *Table {
	out := &Table{surnames: make(map[string][]string, len(t.surnames))}
	for k, v := range t.surnames {
		out.surnames[k] = slices.Clone(v)
	}
	return out
}

// Syllable returns the Revised Romanization of a single Hangul syllable in
// lower case. ok is false when s is not exactly one precomposed syllable.
func (t *Table) Syllable(s string) (string, bool) {
	rs := []rune(s)
	if len(rs) != 1 || rs[0] < hangulBase || rs[0] > 0xD7A3 {
		return "", false
	}
	idx := int(rs[0] - hangulBase)
	return initials[idx/588] + medials[(idx%588)/28] + finals[idx%28], true
}

// Romanize returns the Revised Romanization of every syllable in s joined
// without separators. Non-syllable runes are skipped.
func (t *Table) Romanize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if rom, ok := t.Syllable(string(r)); ok {
			b.WriteString(rom)
		}
	}
	return b.String()
}

// Spellings returns the accepted lower-case spellings for a unit: the Revised
// Romanization first, followed by surname conventions when surname is true.
func (t *Table) Spellings(unit string, surname bool) []string {
	rr := t.Romanize(unit)
	out := []string{}
	if rr != "" {
		out = append(out, rr)
	}
	if surname {
		for _, conv := range t.surnames[unit] {
			low := strings.ToLower(conv)
			if !slices.Contains(out, low) {
				out = append(out, low)
			}
		}
	}
	return out
}

// Accepts reports whether roman is an accepted spelling of unit. Comparison
// ignores case.
func (t *Table) Accepts(unit, roman string, surname bool) bool {
	return slices.Contains(t.Spellings(unit, surname), strings.ToLower(roman))
}

// SurnameConventions returns the customary spellings declared for surname.
func (t *Table) SurnameConventions(surname string) []string {
	return slices.Clone(t.surnames[surname])
}
