package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	reSpaces    = regexp.MustCompile(`[ \t\f\v]+`)
	reAllSpaces = regexp.MustCompile(`\s+`)
	reColumnGap = regexp.MustCompile(`[ \t]{2,}|\t`)
)

// Mojibake left behind when the vendor's UTF-8 export is re-read as cp1252.
var mojibake = strings.NewReplacer(
	"ï¼Œ", "，",
	"ï¼š", "：",
	"ï¼ˆ", "（",
	"ï¼‰", "）",
	"â€™", "'",
	"â€“", "-",
	"Â\u00a0", " ",
	"Â", "",
)

var fullwidth = strings.NewReplacer(
	"，", ", ",
	"：", ": ",
	"（", "(",
	"）", ")",
	"；", "; ",
	"\u3000", " ",
)

// CleanArtifacts repairs encoding damage inside an already matched value.
func CleanArtifacts(input string) string {
	s := mojibake.Replace(input)
	s = fullwidth.Replace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0':
			return ' '
		case '\ufffd', '\ufeff', '\u200b', '\u200c', '\u200d':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return s
}

// CollapseSpaces folds every whitespace run, newlines included, into one space.
func CollapseSpaces(input string) string {
	return strings.TrimSpace(reAllSpaces.ReplaceAllString(input, " "))
}

// CutColumn keeps the text before the first column gap on the first
// non-blank line.
func CutColumn(input string) string {
	s := strings.TrimLeft(input, " \t\r\n")
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	if loc := reColumnGap.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// CutAtWord truncates input at the first standalone occurrence of word.
func CutAtWord(input, word string) string {
	lower := strings.ToLower(input)
	w := strings.ToLower(word)
	from := 0
	for {
		i := strings.Index(lower[from:], w)
		if i < 0 {
			return input
		}
		i += from
		end := i + len(w)
		if isBoundary(lower, i-1) && isBoundary(lower, end) {
			return input[:i]
		}
		from = i + 1
	}
}

// ContainsToken reports whether token occurs in s with no letter glued to
// either end.
func ContainsToken(s, token string) bool {
	if token == "" {
		return false
	}
	from := 0
	for {
		i := strings.Index(s[from:], token)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(token)
		if (isBoundary(s, i-1) || !startsWithLetter(token)) && (isBoundary(s, end) || !endsWithLetter(token)) {
			return true
		}
		from = i + 1
	}
}

func TitleCase(input string) string {
	s := CollapseSpaces(input)
	if s == "" {
		return ""
	}
	return cases.Title(language.Spanish).String(strings.ToLower(s))
}

func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80)
}

func startsWithLetter(s string) bool {
	return s != "" && !isBoundary(s, 0)
}

func endsWithLetter(s string) bool {
	return s != "" && !isBoundary(s, len(s)-1)
}

func StringPtr(v string) *string { return &v }
