package search

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/processing"
)

const (
	DefaultLimit        = 20
	DefaultSuggestLimit = 10
	MinSuggestPrefixLen = 2
)

// SearchOptions narrows a document search. Zero values disable a filter.
type SearchOptions struct {
	Limit    int
	Category string
	Source   string
	From     time.Time
	To       time.Time
}

func (o SearchOptions) keep(d models.Document) bool {
	if !models.IsAll(o.Category) && string(d.Category) != strings.ToLower(strings.TrimSpace(o.Category)) {
		return false
	}
	if o.Source != "" && d.Source.ID != o.Source {
		return false
	}
	if !o.From.IsZero() && d.PublishedAt.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && d.PublishedAt.After(o.To) {
		return false
	}
	return true
}

// Search ranks documents by the summed inverse document frequency of the
// query terms they contain. An empty query lists documents newest first.
func (idx *Index) Search(query string, opts SearchOptions) []models.ScoredDocument {
	s := idx.load()
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	terms := dedupe(processing.Terms(query))
	if len(terms) == 0 {
		return s.recent(opts, limit)
	}

	total := float64(len(s.docs))
	scores := make(map[string]float64)
	for _, term := range terms {
		posting := s.postings[term]
		if len(posting) == 0 {
			continue
		}
		idf := math.Log((total + 1) / float64(s.docFreq[term]+1))
		for id := range posting {
			scores[id] += idf
		}
	}

	hits := make([]models.ScoredDocument, 0, len(scores))
	for id, score := range scores {
		doc := s.docs[id]
		if !opts.keep(doc) {
			continue
		}
		hits = append(hits, models.ScoredDocument{Document: doc, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return newer(hits[i].Document, hits[j].Document)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (s *snapshot) recent(opts SearchOptions, limit int) []models.ScoredDocument {
	out := make([]models.ScoredDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		if opts.keep(doc) {
			out = append(out, models.ScoredDocument{Document: doc})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].Document, out[j].Document)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func newer(a, b models.Document) bool {
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.After(b.PublishedAt)
	}
	return a.ID < b.ID
}

func dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Suggest completes a prefix with indexed words, most widely used first.
// A term matches when either its stem or a word it was indexed from
// starts with the prefix; the most frequent of those words is returned.
func (idx *Index) Suggest(prefix string, limit int) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len([]rune(prefix)) < MinSuggestPrefixLen {
		return []string{}
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	s := idx.load()
	type candidate struct {
		word  string
		count int
	}
	best := make(map[string]int)
	for term, forms := range s.words {
		word := surface(forms, prefix)
		if word == "" {
			if !strings.HasPrefix(term, prefix) {
				continue
			}
			word = surface(forms, "")
		}
		if n := len(s.postings[term]); n > best[word] {
			best[word] = n
		}
	}

	candidates := make([]candidate, 0, len(best))
	for w, n := range best {
		candidates = append(candidates, candidate{word: w, count: n})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].word < candidates[j].word
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.word
	}
	return out
}

// surface picks the most frequent word starting with prefix, breaking
// ties alphabetically. It returns "" when no word matches.
func surface(forms map[string]int, prefix string) string {
	var word string
	count := 0
	for w, n := range forms {
		if !strings.HasPrefix(w, prefix) {
			continue
		}
		if n > count || (n == count && w < word) {
			word, count = w, n
		}
	}
	return word
}
