package processing

import "strings"

// derivational suffix replacements, applied first-match in this order.
var suffixes = [...]struct{ from, to string }{
	{"ational", "ate"},
	{"tional", "tion"},
	{"enci", "ence"},
	{"anci", "ance"},
	{"izer", "ize"},
	{"isation", "ise"},
	{"ization", "ize"},
	{"ation", "ate"},
	{"ator", "ate"},
	{"alism", "al"},
	{"iveness", "ive"},
	{"fulness", "ful"},
	{"ousness", "ous"},
	{"aliti", "al"},
	{"iviti", "ive"},
	{"biliti", "ble"},
}

// Stem strips common inflectional and derivational suffixes from a
// lower-case word. It is a light Porter-style pass, not a full stemmer.
func Stem(word string) string {
	w := strings.ToLower(word)

	switch {
	case strings.HasSuffix(w, "sses"):
		w = w[:len(w)-2]
	case strings.HasSuffix(w, "ies"):
		w = w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "ss"):
	case strings.HasSuffix(w, "s") && len(w) > 3:
		w = w[:len(w)-1]
	}

	switch {
	case strings.HasSuffix(w, "eed"):
		if len(w) > 4 {
			w = w[:len(w)-1]
		}
	case strings.HasSuffix(w, "ed") && len(w) > 4:
		w = w[:len(w)-2]
	case strings.HasSuffix(w, "ing") && len(w) > 5:
		w = w[:len(w)-3]
	}

	for _, s := range suffixes {
		if strings.HasSuffix(w, s.from) && len(w) > len(s.from)+2 {
			w = w[:len(w)-len(s.from)] + s.to
			break
		}
	}

	return w
}
