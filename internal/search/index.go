// Package search keeps an inverted index over articles and answers
// relevance-ranked queries, autocomplete and cluster-level searches.
package search

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/processing"
)

// snapshot is one immutable generation of the index. Readers load it
// once per call and never see it change.
type snapshot struct {
	docs       map[string]models.Document
	docTerms   map[string][]docTerm
	postings   map[string]map[string]struct{}
	docFreq    map[string]int
	words      map[string]map[string]int
	generation uint64
	builtAt    time.Time
}

// docTerm is one distinct stem of a document with the surface words it
// was indexed from, so a replaced document can retract them.
type docTerm struct {
	stem  string
	words map[string]int
}

func newSnapshot() *snapshot {
	return &snapshot{
		docs:     make(map[string]models.Document),
		docTerms: make(map[string][]docTerm),
		postings: make(map[string]map[string]struct{}),
		docFreq:  make(map[string]int),
		words:    make(map[string]map[string]int),
	}
}

// Builder accumulates documents for a new index generation. It is not
// safe for concurrent use and is discarded after Publish.
type Builder struct {
	snap *snapshot
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{snap: newSnapshot()}
}

// Add indexes an article. Re-adding an id replaces the earlier document.
func (b *Builder) Add(a models.Article) {
	s := b.snap
	if _, dup := s.docs[a.ID]; dup {
		b.remove(a.ID)
	}

	s.docs[a.ID] = models.NewDocument(a)

	analyzed := processing.Analyze(a.Title + " " + a.Summary + " " + a.Source.Name)
	distinct := make([]docTerm, 0, len(analyzed))
	slot := make(map[string]int, len(analyzed))
	for _, t := range analyzed {
		forms, ok := s.words[t.Stem]
		if !ok {
			forms = make(map[string]int)
			s.words[t.Stem] = forms
		}
		forms[t.Word]++

		if i, seen := slot[t.Stem]; seen {
			distinct[i].words[t.Word]++
			continue
		}
		slot[t.Stem] = len(distinct)
		distinct = append(distinct, docTerm{stem: t.Stem, words: map[string]int{t.Word: 1}})

		posting, ok := s.postings[t.Stem]
		if !ok {
			posting = make(map[string]struct{})
			s.postings[t.Stem] = posting
		}
		posting[a.ID] = struct{}{}
		s.docFreq[t.Stem]++
	}
	s.docTerms[a.ID] = distinct
}

func (b *Builder) remove(id string) {
	s := b.snap
	for _, dt := range s.docTerms[id] {
		term := dt.stem
		delete(s.postings[term], id)
		s.docFreq[term]--
		if len(s.postings[term]) == 0 {
			delete(s.postings, term)
			delete(s.docFreq, term)
			delete(s.words, term)
			continue
		}
		forms := s.words[term]
		for w, n := range dt.words {
			forms[w] -= n
			if forms[w] <= 0 {
				delete(forms, w)
			}
		}
	}
	delete(s.docTerms, id)
	delete(s.docs, id)
}

// Len is the number of documents added so far.
func (b *Builder) Len() int {
	return len(b.snap.docs)
}

// Index is the published search index. Queries run against the current
// generation while a new one is built off to the side; Rebuild swaps
// generations in a single atomic store.
type Index struct {
	current atomic.Pointer[snapshot]
	// mu serializes writers so that generations are never lost.
	mu sync.Mutex
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	idx := &Index{}
	idx.current.Store(newSnapshot())
	return idx
}

func (idx *Index) load() *snapshot {
	return idx.current.Load()
}

// Publish makes the builder's documents the current generation.
func (idx *Index) Publish(b *Builder) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := b.snap
	b.snap = newSnapshot()
	next.generation = idx.load().generation + 1
	next.builtAt = time.Now().UTC()
	idx.current.Store(next)
}

// Rebuild replaces the whole index with the given articles.
func (idx *Index) Rebuild(articles []models.Article) {
	b := NewBuilder()
	for _, a := range articles {
		b.Add(a)
	}
	idx.Publish(b)
}

// Clear publishes an empty generation.
func (idx *Index) Clear() {
	idx.Publish(NewBuilder())
}

// AddDocument adds one article on top of the current generation. It
// copies the current documents, so bulk loads should use Rebuild.
func (idx *Index) AddDocument(a models.Article) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.load()
	next := cur.clone()
	(&Builder{snap: next}).Add(a)
	next.generation = cur.generation + 1
	next.builtAt = time.Now().UTC()
	idx.current.Store(next)
}

func (s *snapshot) clone() *snapshot {
	out := newSnapshot()
	for id, d := range s.docs {
		out.docs[id] = d
	}
	for id, terms := range s.docTerms {
		out.docTerms[id] = terms
	}
	for term, posting := range s.postings {
		cp := make(map[string]struct{}, len(posting))
		for id := range posting {
			cp[id] = struct{}{}
		}
		out.postings[term] = cp
	}
	for term, n := range s.docFreq {
		out.docFreq[term] = n
	}
	for term, forms := range s.words {
		cp := make(map[string]int, len(forms))
		for w, n := range forms {
			cp[w] = n
		}
		out.words[term] = cp
	}
	return out
}

// Stats describes the current generation.
type Stats struct {
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	Generation uint64    `json:"generation"`
	BuiltAt    time.Time `json:"builtAt"`
}

// Stats reports the size of the current generation.
func (idx *Index) Stats() Stats {
	s := idx.load()
	return Stats{
		Documents:  len(s.docs),
		Terms:      len(s.postings),
		Generation: s.generation,
		BuiltAt:    s.builtAt,
	}
}

// Generation identifies the current index contents.
func (idx *Index) Generation() uint64 {
	return idx.load().generation
}
