// Package ranking orders story clusters by importance.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/DeafMist/story-radar/backend/internal/models"
)

const (
	articleWeight         = 10.0
	recencyHorizonHours   = 50.0
	priorityWeight        = 5.0
	defaultCategoryWeight = 5.0
	minPriority           = 1
	maxPriority           = 3
)

var categoryWeights = map[models.Category]float64{
	models.CategoryEmergency:   30,
	models.CategoryPolitics:    20,
	models.CategoryBusiness:    15,
	models.CategoryEnvironment: 15,
	models.CategoryMilitary:    10,
	models.CategoryCommunity:   10,
	models.CategoryGeneral:     5,
}

// CategoryWeight returns the fixed importance bonus for category.
func CategoryWeight(c models.Category) float64 {
	if w, ok := categoryWeights[c]; ok {
		return w
	}
	return defaultCategoryWeight
}

// Importance scores a cluster: corroboration, freshness, topic and the
// authority of the lead's outlet all add up.
func Importance(c models.StoryCluster, now time.Time) float64 {
	score := float64(c.ArticleCount) * articleWeight

	age := now.Sub(c.LatestUpdate).Hours()
	if age < 0 {
		age = 0
	}
	score += math.Max(0, recencyHorizonHours-age)

	score += CategoryWeight(c.Category)

	priority := c.Lead.Source.Priority
	if priority == 0 {
		priority = models.DefaultPriority
	}
	priority = min(max(priority, minPriority), maxPriority)
	score += float64(4-priority) * priorityWeight

	return score
}

// Score returns copies of clusters with ImportanceScore filled in.
func Score(clusters []models.StoryCluster, now time.Time) []models.StoryCluster {
	out := make([]models.StoryCluster, len(clusters))
	for i, c := range clusters {
		c.ImportanceScore = Importance(c, now)
		out[i] = c
	}
	return out
}

// Rank orders already scored clusters by ImportanceScore descending and
// keeps at most limit of them. A non-positive limit keeps all.
func Rank(clusters []models.StoryCluster, limit int) []models.StoryCluster {
	out := append([]models.StoryCluster(nil), clusters...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ImportanceScore > out[j].ImportanceScore
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TopStories scores clusters as of now and returns the limit most important.
func TopStories(clusters []models.StoryCluster, limit int, now time.Time) []models.StoryCluster {
	return Rank(Score(clusters, now), limit)
}

// LeadStories is TopStories restricted to stories corroborated by more
// than one outlet.
func LeadStories(clusters []models.StoryCluster, limit int, now time.Time) []models.StoryCluster {
	multi := make([]models.StoryCluster, 0, len(clusters))
	for _, c := range clusters {
		if c.ArticleCount > 1 {
			multi = append(multi, c)
		}
	}
	return TopStories(multi, limit, now)
}

// FilterByCategory keeps clusters in category; "all" or empty keeps everything.
func FilterByCategory(clusters []models.StoryCluster, category string) []models.StoryCluster {
	if models.IsAll(category) {
		return clusters
	}
	want := models.Category(category)
	out := make([]models.StoryCluster, 0, len(clusters))
	for _, c := range clusters {
		if c.Category == want {
			out = append(out, c)
		}
	}
	return out
}
