// Package intake turns name lists and YAML request files into batch
// requests.
package intake

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry is one name read from a list.
type Entry struct {
	Line     int
	Source   string
	Notation string // optional, from a "source = notation" pair
}

// ParseNamesFile reads the name list at path.
func ParseNamesFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("intake: open %s: %w", path, err)
	}
	defer f.Close()
	return ParseNames(f)
}

// ParseNames reads one or more names per line. Blank lines, "#" comment
// lines and separator lines are skipped; bullet and numbered-list prefixes
// are stripped; a line may hold several names separated by commas. A name
// written "source = notation" carries its candidate notation.
func ParseNames(r io.Reader) ([]Entry, error) {
	var out []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") || isDecorator(line) {
			continue
		}
		line = stripListPrefix(line)
		for _, part := range splitNames(line) {
			src, notation, _ := strings.Cut(part, "=")
			src = strings.TrimSpace(src)
			if src == "" {
				continue
			}
			out = append(out, Entry{Line: lineNum, Source: src, Notation: strings.TrimSpace(notation)})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("intake: scan: %w", err)
	}
	return out, nil
}

// splitNames splits on ASCII, full-width and ideographic commas.
func splitNames(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == '，' || r == '、'
	})
}

// isDecorator returns true for lines made of one separator character
// repeated at least 3 times.
func isDecorator(line string) bool {
	var first rune
	count := 0
	for _, ch := range line {
		if count == 0 {
			first = ch
		}
		if ch != first {
			return false
		}
		count++
	}
	switch first {
	case '-', '=', '*', '_', '⸻', '—':
		return count >= 3
	}
	return false
}

// stripListPrefix removes "N. ", "N) ", "- ", "* " or "• " from the start of
// line.
func stripListPrefix(line string) string {
	b := []byte(line)
	for j := 0; j < len(b); j++ {
		ch := b[j]
		if ch >= '0' && ch <= '9' {
			continue
		}
		if (ch == '.' || ch == ')') && j > 0 && j+1 < len(b) && b[j+1] == ' ' {
			return strings.TrimSpace(string(b[j+1:]))
		}
		break
	}
	for _, pfx := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, pfx) {
			return strings.TrimSpace(line[len(pfx):])
		}
	}
	return line
}
