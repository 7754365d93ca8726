// Package feeds fetches RSS and Atom feeds from the configured outlets and
// turns their items into validated articles.
package feeds

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/DeafMist/story-radar/backend/internal/models"
)

// Outlet is a news source together with the feeds it publishes.
type Outlet struct {
	models.Source `yaml:",inline"`
	FeedURLs      []string `yaml:"feed_urls"`
}

type catalogFile struct {
	Sources []Outlet `yaml:"sources"`
}

// DefaultCatalog is used when no sources file is configured.
func DefaultCatalog() []Outlet {
	return []Outlet{
		outlet("star-advertiser", "Honolulu Star-Advertiser", "Star-Advertiser", "https://www.staradvertiser.com", "daily", "statewide", 1,
			"https://www.staradvertiser.com/feed/",
			"https://www.staradvertiser.com/category/breaking-news/feed/",
			"https://www.staradvertiser.com/category/hawaii-news/feed/"),
		outlet("civil-beat", "Honolulu Civil Beat", "Civil Beat", "https://www.civilbeat.org", "digital", "statewide", 1,
			"https://www.civilbeat.org/feed/"),
		outlet("hawaii-news-now", "Hawaii News Now", "Hawaii News Now", "https://www.hawaiinewsnow.com", "broadcast", "statewide", 1,
			"https://www.hawaiinewsnow.com/search/?f=rss&t=article&c=news&l=50&s=start_time&sd=desc"),
		outlet("maui-news", "The Maui News", "Maui News", "https://www.mauinews.com", "daily", "maui", 2,
			"https://www.mauinews.com/feed/"),
		outlet("hawaii-tribune-herald", "Hawaii Tribune-Herald", "Tribune-Herald", "https://www.hawaiitribune-herald.com", "daily", "big-island", 2,
			"https://www.hawaiitribune-herald.com/feed/"),
		outlet("garden-island", "The Garden Island", "Garden Island", "https://www.thegardenisland.com", "daily", "kauai", 2,
			"https://www.thegardenisland.com/feed/"),
		outlet("west-hawaii-today", "West Hawaii Today", "West Hawaii Today", "https://www.westhawaiitoday.com", "daily", "big-island", 2,
			"https://www.westhawaiitoday.com/feed/"),
		outlet("pacific-business-news", "Pacific Business News", "Pacific Business News", "https://www.bizjournals.com/pacific", "business", "statewide", 2,
			"https://www.bizjournals.com/pacific/news/rss.xml"),
		outlet("khon2", "KHON2", "KHON2", "https://www.khon2.com", "broadcast", "statewide", 2,
			"https://www.khon2.com/feed/"),
		outlet("kitv", "KITV Island News", "KITV", "https://www.kitv.com", "broadcast", "statewide", 2,
			"https://www.kitv.com/search/?f=rss&t=article&l=50&s=start_time&sd=desc"),
		outlet("hawaii-public-radio", "Hawaii Public Radio", "HPR", "https://www.hawaiipublicradio.org", "public", "statewide", 2,
			"https://www.hawaiipublicradio.org/feed/"),
		outlet("ka-wai-ola", "Ka Wai Ola", "Ka Wai Ola", "https://kawaiola.news", "community", "statewide", 2,
			"https://kawaiola.news/feed/"),
		outlet("big-island-now", "Big Island Now", "Big Island Now", "https://bigislandnow.com", "digital", "big-island", 3,
			"https://bigislandnow.com/feed/"),
		outlet("maui-now", "Maui Now", "Maui Now", "https://mauinow.com", "digital", "maui", 3,
			"https://mauinow.com/feed/"),
		outlet("uh-news", "University of Hawaii News", "UH News", "https://www.hawaii.edu/news", "institutional", "statewide", 3,
			"https://www.hawaii.edu/news/feed/"),
	}
}

func outlet(id, name, short, url, kind, region string, priority int, feedURLs ...string) Outlet {
	return Outlet{
		Source: models.Source{
			ID:        id,
			Name:      name,
			ShortName: short,
			URL:       url,
			Type:      kind,
			Region:    region,
			Priority:  priority,
		},
		FeedURLs: feedURLs,
	}
}

// LoadCatalog reads outlets from a YAML file. An empty path returns
// DefaultCatalog.
func LoadCatalog(path string) ([]Outlet, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML source catalog.
func ParseCatalog(data []byte) ([]Outlet, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode sources file: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("sources file lists no sources")
	}

	seen := make(map[string]struct{}, len(file.Sources))
	for i := range file.Sources {
		o := &file.Sources[i]
		o.ID = strings.TrimSpace(o.ID)
		switch {
		case o.ID == "":
			return nil, fmt.Errorf("source %d: id is required", i)
		case strings.TrimSpace(o.Name) == "":
			return nil, fmt.Errorf("source %s: name is required", o.ID)
		case len(o.FeedURLs) == 0:
			return nil, fmt.Errorf("source %s: at least one feed url is required", o.ID)
		case o.Priority < 0 || o.Priority > models.DefaultPriority:
			return nil, fmt.Errorf("source %s: priority must be between 1 and %d", o.ID, models.DefaultPriority)
		}
		if _, dup := seen[o.ID]; dup {
			return nil, fmt.Errorf("source %s: duplicate id", o.ID)
		}
		seen[o.ID] = struct{}{}

		if o.Priority == 0 {
			o.Priority = models.DefaultPriority
		}
		if o.ShortName == "" {
			o.ShortName = o.Name
		}
	}
	return file.Sources, nil
}
