package catalog

import (
	"sort"
	"strings"

	"etiquetas/internal/util"
)

type colorEntry struct {
	token     string
	canonical string
}

// colorIndex keeps tokens ordered longest first so the first hit is the most
// specific one.
type colorIndex struct {
	entries []colorEntry
}

func buildColorIndex(colors map[string]string) colorIndex {
	entries := make([]colorEntry, 0, len(colors))
	for token, canonical := range colors {
		entries = append(entries, colorEntry{token: token, canonical: canonical})
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].token) != len(entries[j].token) {
			return len(entries[i].token) > len(entries[j].token)
		}
		return entries[i].token < entries[j].token
	})
	return colorIndex{entries: entries}
}

func (idx colorIndex) find(folded string) (string, string, bool) {
	for _, e := range idx.entries {
		if util.ContainsToken(folded, e.token) {
			return e.token, e.canonical, true
		}
	}
	return "", "", false
}

func colorKey(token string) string {
	return util.CollapseSpaces(strings.ToLower(token))
}

func modelKey(code string) string {
	return strings.ToLower(strings.Join(strings.Fields(code), ""))
}
