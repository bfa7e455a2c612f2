package util

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxSlugLen = 40

// Slugify lowercases text, folds accents, and replaces every non
// alphanumeric rune with an underscore. The result is cut to 40 runes.
// "Café GPT: 5 Tricks" -> "cafe_gpt__5_tricks"
func Slugify(text string) string {
	var b strings.Builder
	n := 0
	for _, r := range norm.NFKD.String(strings.ToLower(text)) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if n == maxSlugLen {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}

// ScriptID derives the stable entry identifier from a script path: the base
// name without extension, NFC-normalized so identical names typed on
// different systems compare equal.
func ScriptID(scriptPath string) string {
	base := filepath.Base(scriptPath)
	return norm.NFC.String(strings.TrimSuffix(base, filepath.Ext(base)))
}
