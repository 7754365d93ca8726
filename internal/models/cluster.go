package models

import "time"

// StoryCluster groups articles from different outlets that report the same event.
type StoryCluster struct {
	ID              string    `json:"id"`
	Lead            Article   `json:"lead"`
	Related         []Article `json:"related"`
	Category        Category  `json:"category"`
	ArticleCount    int       `json:"articleCount"`
	LatestUpdate    time.Time `json:"latestUpdate"`
	Sources         []string  `json:"sources"`
	ImportanceScore float64   `json:"importanceScore,omitempty"`
	Tag             string    `json:"tag,omitempty"`
	TagOverride     bool      `json:"tagOverride,omitempty"`
}

// Members returns the lead followed by the related articles.
func (c StoryCluster) Members() []Article {
	out := make([]Article, 0, 1+len(c.Related))
	out = append(out, c.Lead)
	return append(out, c.Related...)
}
