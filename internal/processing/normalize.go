package processing

import (
	"regexp"
	"strings"
)

// MinTermLength is the shortest token kept by Terms.
const MinTermLength = 3

var nonWord = regexp.MustCompile(`[^\w\s]+`)

// stopwords are common function words plus region names that appear in
// nearly every article and carry no signal for matching.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "for": {}, "with": {}, "from": {},
	"was": {}, "are": {}, "were": {}, "been": {}, "have": {}, "has": {},
	"had": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "must": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "they": {}, "their": {}, "them": {}, "its": {},
	"his": {}, "her": {}, "she": {}, "you": {}, "your": {}, "our": {},
	"what": {}, "which": {}, "who": {}, "when": {}, "where": {}, "how": {},
	"not": {}, "all": {}, "into": {}, "about": {}, "said": {}, "says": {},
	"hawaii": {}, "hawaiian": {}, "honolulu": {}, "oahu": {}, "maui": {},
	"kauai": {},
}

// IsStopword reports whether the lower-cased token is filtered out of Terms.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// Tokenize lower-cases text and splits it on non-word boundaries.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Fields(nonWord.ReplaceAllString(strings.ToLower(text), " "))
}

// Term is a normalized term and the lower-case word it was stemmed from.
type Term struct {
	Stem string
	Word string
}

// Analyze is the shared normalizer: tokenize, drop short tokens and
// stopwords, then stem. Both similarity scoring and the search index
// go through it so that they agree on what a term is.
func Analyze(text string) []Term {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	out := make([]Term, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) < MinTermLength || IsStopword(tok) {
			continue
		}
		out = append(out, Term{Stem: Stem(tok), Word: tok})
	}
	return out
}

// Terms returns the stems produced by Analyze, in order.
func Terms(text string) []string {
	analyzed := Analyze(text)
	if analyzed == nil {
		return nil
	}
	out := make([]string, len(analyzed))
	for i, t := range analyzed {
		out[i] = t.Stem
	}
	return out
}

// TermSet returns the distinct terms of text.
func TermSet(text string) map[string]struct{} {
	terms := Terms(text)
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}
