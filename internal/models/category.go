package models

import (
	"errors"
	"strings"
)

// Category is the fixed topical classification of an article.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryPolitics    Category = "politics"
	CategoryBusiness    Category = "business"
	CategoryEnvironment Category = "environment"
	CategoryCommunity   Category = "community"
	CategoryEmergency   Category = "emergency"
	CategoryMilitary    Category = "military"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryGeneral,
	CategoryPolitics,
	CategoryBusiness,
	CategoryEnvironment,
	CategoryCommunity,
	CategoryEmergency,
	CategoryMilitary,
}

// ErrUnknownCategory is returned when a filter names no known category.
var ErrUnknownCategory = errors.New("unknown category")

// LookupCategory reports the known category raw names, if any.
func LookupCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// ParseCategory maps raw input onto a known category, defaulting to general.
func ParseCategory(raw string) Category {
	if c, ok := LookupCategory(raw); ok {
		return c
	}
	return CategoryGeneral
}

// IsAll reports whether raw selects every category.
func IsAll(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "" || strings.EqualFold(raw, "all")
}
