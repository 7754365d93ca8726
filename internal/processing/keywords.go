package processing

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultKeywordLimit matches the number of keywords an article carries.
const DefaultKeywordLimit = 10

// DefaultKeywordMinLength is the shortest word considered a keyword.
const DefaultKeywordMinLength = 4

var asciiWord = regexp.MustCompile(`[a-z]+`)

// keywordStopwords filters frequent words that would dominate every
// article's keyword list, including local place names.
var keywordStopwords = map[string]struct{}{
	"that": {}, "this": {}, "with": {}, "from": {}, "have": {}, "been": {},
	"were": {}, "they": {}, "their": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "about": {}, "after": {}, "before": {}, "other": {},
	"which": {}, "being": {}, "more": {}, "some": {}, "than": {}, "when": {},
	"what": {}, "there": {}, "into": {}, "also": {}, "said": {}, "says": {},
	"year": {}, "years": {}, "according": {}, "hawaii": {}, "hawaiian": {},
	"honolulu": {}, "maui": {}, "oahu": {}, "kauai": {}, "island": {},
	"state": {}, "county": {}, "city": {},
}

// ExtractKeywords returns the most frequent words that are not stop-words.
// Words are unstemmed lower-case ASCII runs of at least minLen letters;
// equally frequent words keep the order they first appear in, so title
// words win over summary words.
func ExtractKeywords(text string, limit, minLen int) []string {
	clean := strings.ToLower(CleanText(text))
	if clean == "" {
		return nil
	}

	type kv struct {
		word  string
		count int
	}

	var pairs []kv
	seen := make(map[string]int)
	for _, token := range asciiWord.FindAllString(clean, -1) {
		if len(token) < minLen {
			continue
		}
		if _, skip := keywordStopwords[token]; skip {
			continue
		}
		if i, ok := seen[token]; ok {
			pairs[i].count++
			continue
		}
		seen[token] = len(pairs)
		pairs = append(pairs, kv{word: token, count: 1})
	}

	if len(pairs) == 0 {
		return nil
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].count > pairs[j].count
	})

	max := limit
	if max <= 0 || max > len(pairs) {
		max = len(pairs)
	}

	keywords := make([]string, 0, max)
	for i := 0; i < max; i++ {
		keywords = append(keywords, pairs[i].word)
	}

	return keywords
}
