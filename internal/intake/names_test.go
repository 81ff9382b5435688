package intake

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNames(t *testing.T) {
	input := "\ufeff# cast list\n" +
		"\n" +
		"1. 김연아 = Kim Yuna\n" +
		"- 봉준호, 박찬욱\n" +
		"---\n" +
		"* Tom Holland，Zendaya\n" +
		"• 손흥민 = Son Heung-min\n" +
		"2) 이순신\n"

	got, err := ParseNames(strings.NewReader(input))
	require.NoError(t, err)

	want := []Entry{
		{Line: 3, Source: "김연아", Notation: "Kim Yuna"},
		{Line: 4, Source: "봉준호"},
		{Line: 4, Source: "박찬욱"},
		{Line: 6, Source: "Tom Holland"},
		{Line: 6, Source: "Zendaya"},
		{Line: 7, Source: "손흥민", Notation: "Son Heung-min"},
		{Line: 8, Source: "이순신"},
	}
	assert.Equal(t, want, got)
}

func TestParseNames_Empty(t *testing.T) {
	got, err := ParseNames(strings.NewReader("# nothing here\n\n===\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.txt")
	require.NoError(t, os.WriteFile(path, []byte("김연아\n"), 0o644))

	got, err := ParseNamesFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "김연아", got[0].Source)

	_, err = ParseNamesFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestIsDecorator(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"---", true},
		{"=====", true},
		{"***", true},
		{"--", false},
		{"-=-", false},
		{"김연아", false},
		{"", false},
	}
	for _, c := range cases {
		if got := isDecorator(c.line); got != c.want {
			t.Errorf("isDecorator(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestStripListPrefix(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"1. 김연아", "김연아"},
		{"12) Tom Holland", "Tom Holland"},
		{"- 봉준호", "봉준호"},
		{"* Zendaya", "Zendaya"},
		{"• 손흥민", "손흥민"},
		{"1.no space", "1.no space"},
		{"BTS", "BTS"},
	}
	for _, c := range cases {
		if got := stripListPrefix(c.line); got != c.want {
			t.Errorf("stripListPrefix(%q) = %q, want %q", c.line, got, c.want)
		}
	}
}
