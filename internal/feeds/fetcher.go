package feeds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/story-radar/backend/internal/metrics"
	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/processing"
)

const userAgent = "StoryRadar/1.0 (+feed fetcher)"

// Options tune the fetcher. Zero values fall back to defaults.
type Options struct {
	Concurrency   int
	HostInterval  time.Duration
	Timeout       time.Duration
	SummaryLength int
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.SummaryLength <= 0 {
		o.SummaryLength = processing.DefaultSummaryLength
	}
	return o
}

// SourceStats summarizes one outlet's contribution to a fetch.
type SourceStats struct {
	SourceID    string    `json:"sourceId"`
	Name        string    `json:"name"`
	Feeds       int       `json:"feeds"`
	FailedFeeds int       `json:"failedFeeds"`
	Articles    int       `json:"articles"`
	Latest      time.Time `json:"latest"`
}

// Result is the outcome of FetchAll.
type Result struct {
	Articles []models.Article
	Sources  []SourceStats
}

// Fetcher downloads feeds concurrently with a bounded worker pool.
type Fetcher struct {
	client  *http.Client
	limiter *HostRateLimiter
	opts    Options
	log     *slog.Logger
}

// NewFetcher builds a fetcher. A nil client gets one with opts.Timeout.
func NewFetcher(client *http.Client, opts Options, logger *slog.Logger) *Fetcher {
	opts = opts.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fetcher{
		client:  client,
		limiter: NewHostRateLimiter(opts.HostInterval),
		opts:    opts,
		log:     logger,
	}
}

type feedResult struct {
	outlet   int
	articles []models.Article
	err      error
}

// FetchAll fetches every feed of every outlet. A failing feed is logged
// and contributes no articles; only cancellation of ctx is an error.
// Articles are deduplicated by URL and sorted newest first.
func (f *Fetcher) FetchAll(ctx context.Context, outlets []Outlet) (Result, error) {
	var (
		mu      sync.Mutex
		results []feedResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)

	for i, o := range outlets {
		i, o := i, o
		for _, feedURL := range o.FeedURLs {
			feedURL := feedURL
			g.Go(func() error {
				articles, err := f.FetchFeed(gctx, o, feedURL)
				if err != nil {
					f.log.Warn("feed fetch failed",
						slog.String("source", o.ID),
						slog.String("feed", feedURL),
						slog.String("err", err.Error()))
				}
				metrics.RecordFeedFetch(o.ID, len(articles), err)

				mu.Lock()
				results = append(results, feedResult{outlet: i, articles: articles, err: err})
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	return merge(outlets, results), nil
}

func merge(outlets []Outlet, results []feedResult) Result {
	stats := make([]SourceStats, len(outlets))
	for i, o := range outlets {
		stats[i] = SourceStats{SourceID: o.ID, Name: o.Name}
	}

	// Feeds finish in arbitrary order; sort first so that dedupe keeps a
	// deterministic copy of each URL.
	var all []models.Article
	for _, r := range results {
		stats[r.outlet].Feeds++
		if r.err != nil {
			stats[r.outlet].FailedFeeds++
		}
		all = append(all, r.articles...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].PublishedAt.Equal(all[j].PublishedAt) {
			return all[i].PublishedAt.After(all[j].PublishedAt)
		}
		return all[i].ID < all[j].ID
	})

	index := make(map[string]int, len(outlets))
	for i, o := range outlets {
		index[o.ID] = i
	}

	seen := make(map[string]struct{}, len(all))
	unique := make([]models.Article, 0, len(all))
	for _, a := range all {
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}
		unique = append(unique, a)

		if i, ok := index[a.Source.ID]; ok {
			s := &stats[i]
			s.Articles++
			if a.PublishedAt.After(s.Latest) {
				s.Latest = a.PublishedAt
			}
		}
	}

	return Result{Articles: unique, Sources: stats}
}

// FetchFeed downloads and converts one feed. Items that cannot be turned
// into a valid article are skipped.
func (f *Fetcher) FetchFeed(ctx context.Context, o Outlet, feedURL string) ([]models.Article, error) {
	if err := f.limiter.Wait(ctx, feedURL); err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", feedURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	res, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", feedURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("get %s: unexpected status %s", feedURL, res.Status)
	}

	feed, err := gofeed.NewParser().Parse(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", feedURL, err)
	}

	articles := make([]models.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		a, err := ItemToArticle(item, o.Source, f.opts.SummaryLength)
		if err != nil {
			f.log.Debug("skip feed item",
				slog.String("source", o.ID),
				slog.String("title", item.Title),
				slog.String("err", err.Error()))
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// ItemToArticle converts a parsed feed item into a validated article.
// The summary is plain text cut to summaryLength; category and keywords
// are derived from the title and summary.
func ItemToArticle(item *gofeed.Item, src models.Source, summaryLength int) (models.Article, error) {
	if item == nil {
		return models.Article{}, &models.ValidationError{Field: "item", Reason: "is nil"}
	}

	link := strings.TrimSpace(item.Link)
	if link == "" {
		link = strings.TrimSpace(item.GUID)
	}

	title := processing.StripHTML(item.Title)
	summary := processing.TruncateSummary(summaryText(item), summaryLength)

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	return models.NewArticle(models.Article{
		Title:       title,
		URL:         link,
		Summary:     summary,
		Author:      author(item),
		PublishedAt: published,
		Source:      src,
		Category:    processing.Classify(title, summary),
		Keywords:    processing.ExtractKeywords(title+" "+summary, models.MaxKeywords, processing.DefaultKeywordMinLength),
	})
}

func summaryText(item *gofeed.Item) string {
	for _, raw := range []string{item.Description, item.Content} {
		if text := processing.StripHTML(raw); text != "" {
			return text
		}
	}
	return ""
}

func author(item *gofeed.Item) string {
	for _, p := range item.Authors {
		if p != nil && strings.TrimSpace(p.Name) != "" {
			return strings.TrimSpace(p.Name)
		}
	}
	return ""
}
