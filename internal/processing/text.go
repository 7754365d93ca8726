package processing

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultSummaryLength is the rune budget for article summaries.
const DefaultSummaryLength = 300

var (
	urlRegex   = regexp.MustCompile(`https?://[^\s]+`)
	whitespace = regexp.MustCompile(`\s+`)
	strict     = bluemonday.StrictPolicy()
)

// RemoveURLs removes all URLs from the input text.
func RemoveURLs(input string) string {
	return urlRegex.ReplaceAllString(input, " ")
}

// StripHTML drops every tag, decodes entities and squeezes whitespace.
func StripHTML(input string) string {
	if input == "" {
		return ""
	}
	text := strict.Sanitize(input)
	text = html.UnescapeString(text)
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CleanText strips markup and URLs and squeezes whitespace, keeping punctuation.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	text := RemoveURLs(StripHTML(input))
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// TruncateSummary shortens text to maxLen runes, preferring to cut on the
// last word boundary when it falls within the final 50 runes, and marks
// the cut with "...".
func TruncateSummary(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSummaryLength
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	cut := strings.TrimSpace(string(runes[:maxLen]))
	if idx := strings.LastIndex(cut, " "); idx >= 0 && len([]rune(cut[:idx])) > maxLen-50 {
		cut = cut[:idx]
	}
	return cut + "..."
}
