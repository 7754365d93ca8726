package ranking

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/DeafMist/story-radar/backend/internal/models"
)

// ErrInvalidTag is returned by NormalizeTag for tags outside 2..30 characters.
var ErrInvalidTag = errors.New("tag must be 2-30 characters")

var tagChars = regexp.MustCompile(`[^a-z0-9-]`)

// NormalizeTag lower-cases raw and replaces anything outside [a-z0-9-] with '-'.
func NormalizeTag(raw string) (string, error) {
	tag := tagChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "-")
	if len(tag) < 2 || len(tag) > 30 {
		return "", ErrInvalidTag
	}
	return tag, nil
}

// ApplyTags returns copies of clusters tagged with their override, or
// with their category when no override exists. Clustering and importance
// are not affected.
func ApplyTags(clusters []models.StoryCluster, overrides map[string]string) []models.StoryCluster {
	out := make([]models.StoryCluster, len(clusters))
	for i, c := range clusters {
		if tag, ok := overrides[c.ID]; ok {
			c.Tag, c.TagOverride = tag, true
		} else {
			c.Tag, c.TagOverride = string(c.Category), false
		}
		out[i] = c
	}
	return out
}

// FilterByTag keeps clusters carrying tag; "all" or empty keeps everything.
func FilterByTag(clusters []models.StoryCluster, tag string) []models.StoryCluster {
	if models.IsAll(tag) {
		return clusters
	}
	out := make([]models.StoryCluster, 0, len(clusters))
	for _, c := range clusters {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// TagCount is the number of clusters carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagCounts tallies tags over tagged clusters, most used first.
func TagCounts(clusters []models.StoryCluster) []TagCount {
	counts := make(map[string]int)
	for _, c := range clusters {
		counts[c.Tag]++
	}
	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}
