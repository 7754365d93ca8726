// Package similarity scores how likely two articles report the same story.
package similarity

import (
	"math"
	"regexp"
	"time"

	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/processing"
)

// DecayWindow is the publish-time gap at which similarity reaches zero.
const DecayWindow = 72 * time.Hour

const (
	titleWeight   = 0.4
	bodyWeight    = 0.25
	entityWeight  = 0.2
	keywordWeight = 0.15
	categoryBonus = 0.1
)

var entityPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

var nonEntities = map[string]struct{}{
	"The": {}, "A": {}, "An": {}, "In": {}, "On": {}, "At": {}, "For": {}, "With": {}, "By": {}, "From": {},
	"Monday": {}, "Tuesday": {}, "Wednesday": {}, "Thursday": {}, "Friday": {}, "Saturday": {}, "Sunday": {},
	"January": {}, "February": {}, "March": {}, "April": {}, "May": {}, "June": {}, "July": {},
	"August": {}, "September": {}, "October": {}, "November": {}, "December": {},
	"Today": {}, "Yesterday": {}, "Tomorrow": {},
}

// Features holds the per-article sets compared by Score. Computing them
// once per article keeps the pairwise pass free of repeated tokenizing.
type Features struct {
	sourceID    string
	category    models.Category
	publishedAt time.Time
	title       map[string]struct{}
	body        map[string]struct{}
	entities    map[string]struct{}
	keywords    map[string]struct{}
}

// Extract computes the comparison features of a.
func Extract(a models.Article) Features {
	combined := a.Title + " " + a.Summary
	keywords := make(map[string]struct{}, len(a.Keywords))
	for _, k := range a.Keywords {
		keywords[k] = struct{}{}
	}
	return Features{
		sourceID:    a.Source.ID,
		category:    a.Category,
		publishedAt: a.PublishedAt,
		title:       processing.TermSet(a.Title),
		body:        processing.TermSet(combined),
		entities:    Entities(combined),
		keywords:    keywords,
	}
}

// Similarity scores a pair of articles in [0, 1]. A perfect match in
// every component plus the category bonus is clamped to 1.
func Similarity(a, b models.Article) float64 {
	if a.Source.ID == b.Source.ID {
		return 0
	}
	return Score(Extract(a), Extract(b))
}

// Score compares two precomputed feature sets.
func Score(a, b Features) float64 {
	if a.sourceID == b.sourceID {
		return 0
	}

	decay := TimeDecay(a.publishedAt, b.publishedAt)
	if decay == 0 {
		return 0
	}

	base := titleWeight*Jaccard(a.title, b.title) +
		bodyWeight*Jaccard(a.body, b.body) +
		entityWeight*Jaccard(a.entities, b.entities) +
		keywordWeight*Jaccard(a.keywords, b.keywords)
	if a.category == b.category {
		base += categoryBonus
	}

	return math.Min(1, base*decay)
}

// TimeDecay falls linearly from 1 for simultaneous articles to 0 at DecayWindow.
func TimeDecay(a, b time.Time) float64 {
	gap := a.Sub(b)
	if gap < 0 {
		gap = -gap
	}
	decay := 1 - gap.Hours()/DecayWindow.Hours()
	if decay < 0 {
		return 0
	}
	return decay
}

// Jaccard is |a ∩ b| / |a ∪ b|, and 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Entities extracts runs of capitalized words, skipping weekdays, months
// and a few capitalized function words.
func Entities(text string) map[string]struct{} {
	matches := entityPattern.FindAllString(text, -1)
	out := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, skip := nonEntities[m]; skip {
			continue
		}
		out[m] = struct{}{}
	}
	return out
}
