package models

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxKeywords bounds the keyword list carried by an article.
const MaxKeywords = 10

// DefaultPriority is assigned to sources that do not declare one.
// Lower values are more authoritative; the supported range is 1..3.
const DefaultPriority = 3

// ErrInvalidArticle is matched by every validation failure from NewArticle.
var ErrInvalidArticle = errors.New("invalid article")

// ValidationError names the field that made an article unusable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid article: " + e.Field + " " + e.Reason
}

// Is lets errors.Is(err, ErrInvalidArticle) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArticle
}

// Source describes the outlet an article was published by.
type Source struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	ShortName string `json:"shortName" yaml:"short_name"`
	URL       string `json:"url" yaml:"url"`
	Type      string `json:"type" yaml:"type"`
	Region    string `json:"region" yaml:"region"`
	Priority  int    `json:"priority" yaml:"priority"`
}

// Article is a single normalized news item. It is immutable once built.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      Source    `json:"source"`
	Category    Category  `json:"category"`
	Keywords    []string  `json:"keywords"`
}

// NewArticle validates a and returns the normalized copy.
//
// Missing ids are derived from the source id and URL, an unset priority
// becomes DefaultPriority, unknown categories become CategoryGeneral and
// keywords are capped at MaxKeywords. A zero PublishedAt is rejected so
// that time arithmetic downstream never sees an undefined date.
func NewArticle(a Article) (Article, error) {
	a.Title = strings.TrimSpace(a.Title)
	a.URL = strings.TrimSpace(a.URL)
	a.Source.ID = strings.TrimSpace(a.Source.ID)

	switch {
	case a.Title == "":
		return Article{}, &ValidationError{Field: "title", Reason: "is required"}
	case a.URL == "":
		return Article{}, &ValidationError{Field: "url", Reason: "is required"}
	case a.Source.ID == "":
		return Article{}, &ValidationError{Field: "source.id", Reason: "is required"}
	case strings.TrimSpace(a.Source.Name) == "":
		return Article{}, &ValidationError{Field: "source.name", Reason: "is required"}
	case a.PublishedAt.IsZero():
		return Article{}, &ValidationError{Field: "publishedAt", Reason: "is required"}
	case a.Source.Priority < 0:
		return Article{}, &ValidationError{Field: "source.priority", Reason: fmt.Sprintf("must not be negative, got %d", a.Source.Priority)}
	}

	if a.ID == "" {
		a.ID = BuildArticleID(a.Source.ID, a.URL)
	}
	if a.Source.Priority == 0 {
		a.Source.Priority = DefaultPriority
	}
	if a.Source.ShortName == "" {
		a.Source.ShortName = a.Source.Name
	}
	a.Category = ParseCategory(string(a.Category))
	a.PublishedAt = a.PublishedAt.UTC()

	if len(a.Keywords) > MaxKeywords {
		a.Keywords = a.Keywords[:MaxKeywords]
	}
	a.Keywords = append([]string(nil), a.Keywords...)

	return a, nil
}

// BuildArticleID hashes the source id and URL into a stable identifier.
func BuildArticleID(sourceID, url string) string {
	s := sha1.Sum([]byte(sourceID + "|" + url))
	return sourceID + "-" + hex.EncodeToString(s[:8])
}
