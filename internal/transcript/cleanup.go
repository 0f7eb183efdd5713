package transcript

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	bracketedRe  = regexp.MustCompile(`\[.*?\]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Clean strips bracketed annotations such as [Music] or [Applause],
// collapses whitespace runs and trims.
func Clean(s string) string {
	s = bracketedRe.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// WordCount is the number of whitespace-separated tokens in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Wrap splits s into lines of at most width characters, breaking on
// whitespace. Words longer than width are split. Empty input yields no lines.
func Wrap(s string, width int) []string {
	if width <= 0 {
		width = 1
	}
	var (
		lines []string
		line  strings.Builder
		n     int // runes in line
	)
	flush := func() {
		if n > 0 {
			lines = append(lines, line.String())
			line.Reset()
			n = 0
		}
	}
	for _, word := range strings.Fields(s) {
		wn := utf8.RuneCountInString(word)
		if n > 0 && n+1+wn <= width {
			line.WriteByte(' ')
			line.WriteString(word)
			n += 1 + wn
			continue
		}
		flush()
		for wn > width {
			r := []rune(word)
			lines = append(lines, string(r[:width]))
			word = string(r[width:])
			wn -= width
		}
		line.WriteString(word)
		n = wn
	}
	flush()
	return lines
}
