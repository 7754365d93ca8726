package clustering

import (
	"sort"

	"github.com/DeafMist/story-radar/backend/internal/models"
)

// build orders members by authority then recency and derives the
// cluster fields from them. members must not be empty.
func build(prefix string, members []models.Article) models.StoryCluster {
	sorted := append([]models.Article(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return leadBefore(sorted[i], sorted[j])
	})

	lead := sorted[0]
	latest := lead.PublishedAt
	sources := make([]string, 0, len(sorted))
	seen := make(map[string]struct{}, len(sorted))
	for _, a := range sorted {
		if a.PublishedAt.After(latest) {
			latest = a.PublishedAt
		}
		if _, ok := seen[a.Source.ShortName]; !ok {
			seen[a.Source.ShortName] = struct{}{}
			sources = append(sources, a.Source.ShortName)
		}
	}

	return models.StoryCluster{
		ID:           prefix + lead.ID,
		Lead:         lead,
		Related:      sorted[1:],
		Category:     lead.Category,
		ArticleCount: len(sorted),
		LatestUpdate: latest,
		Sources:      sources,
	}
}

// leadBefore reports whether a outranks b as cluster lead: lower
// priority number first, then the more recent article, then id.
func leadBefore(a, b models.Article) bool {
	if a.Source.Priority != b.Source.Priority {
		return a.Source.Priority < b.Source.Priority
	}
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.After(b.PublishedAt)
	}
	return a.ID < b.ID
}

// sortForDisplay floats multi-source stories up and otherwise orders by
// freshness. It is a coarse pre-sort, not an importance ranking.
func sortForDisplay(clusters []models.StoryCluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.ArticleCount != b.ArticleCount && (a.ArticleCount > 2 || b.ArticleCount > 2) {
			return a.ArticleCount > b.ArticleCount
		}
		if !a.LatestUpdate.Equal(b.LatestUpdate) {
			return a.LatestUpdate.After(b.LatestUpdate)
		}
		return a.ID < b.ID
	})
}
