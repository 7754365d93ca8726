package search

import (
	"sort"

	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/processing"
	"github.com/DeafMist/story-radar/backend/internal/ranking"
)

const (
	titleTermWeight   = 10
	summaryTermWeight = 3
	corroborationMult = 1.5
)

// ClusterSearchOptions narrows a cluster search.
type ClusterSearchOptions struct {
	Limit    int
	Category string
}

// SearchClusters scores each cluster by how many query terms its lead
// carries in the title and summary. Corroborated stories get a boost.
// An empty query returns the filtered clusters in their given order.
func SearchClusters(clusters []models.StoryCluster, query string, opts ClusterSearchOptions) []models.StoryCluster {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	filtered := ranking.FilterByCategory(clusters, opts.Category)

	terms := dedupe(processing.Terms(query))
	if len(terms) == 0 {
		if len(filtered) > limit {
			filtered = filtered[:limit]
		}
		return filtered
	}

	type hit struct {
		cluster models.StoryCluster
		score   float64
	}
	hits := make([]hit, 0, len(filtered))
	for _, c := range filtered {
		title := processing.TermSet(c.Lead.Title)
		summary := processing.TermSet(c.Lead.Summary)

		var score float64
		for _, term := range terms {
			if _, ok := title[term]; ok {
				score += titleTermWeight
			}
			if _, ok := summary[term]; ok {
				score += summaryTermWeight
			}
		}
		if score == 0 {
			continue
		}
		if c.ArticleCount > 1 {
			score *= corroborationMult
		}
		hits = append(hits, hit{cluster: c, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]models.StoryCluster, len(hits))
	for i, h := range hits {
		out[i] = h.cluster
	}
	return out
}
