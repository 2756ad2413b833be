package announce

import "strings"

// pronunciations maps dish names to phonetic spellings so the synthesizer
// does not mangle them. Matching is case-insensitive; announcement text is
// spoken, so the lowercased result is fine.
var pronunciations = [][2]string{
	{"jollof rice", "JOH-lof rice"},
	{"jollof", "JOH-lof"},
	{"banku", "BAHN-koo"},
	{"fufu", "FOO-foo"},
	{"waakye", "WAH-chay"},
	{"kelewele", "keh-leh-WEH-leh"},
	{"tuo zaafi", "TOO-oh ZAH-fee"},
	{"shito", "SHEE-toh"},
}

// Pronounce rewrites known dish names in the items text to their phonetic
// form. Longer names are listed first so "jollof rice" wins over "jollof".
func Pronounce(items string) string {
	text := strings.ToLower(items)
	for _, p := range pronunciations {
		text = strings.ReplaceAll(text, p[0], p[1])
	}
	return text
}
