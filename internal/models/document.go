package models

import "time"

// Document is the search index projection of an Article.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      Source    `json:"source"`
	Category    Category  `json:"category"`
	PublishedAt time.Time `json:"publishedAt"`
}

// NewDocument projects an article into its indexable form.
func NewDocument(a Article) Document {
	return Document{
		ID:          a.ID,
		Title:       a.Title,
		Summary:     a.Summary,
		URL:         a.URL,
		Source:      a.Source,
		Category:    a.Category,
		PublishedAt: a.PublishedAt,
	}
}

// ScoredDocument is a search hit.
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}
