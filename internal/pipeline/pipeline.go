// Package pipeline owns the published story snapshot: it loads a batch of
// recent articles, clusters them, rebuilds the search index and swaps the
// results in for readers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/DeafMist/story-radar/backend/internal/clustering"
	"github.com/DeafMist/story-radar/backend/internal/metrics"
	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/ranking"
	"github.com/DeafMist/story-radar/backend/internal/search"
)

// ErrRefreshInProgress is returned when a refresh is triggered while
// another one is still running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// ArticleSource supplies the batch of articles a refresh works on.
type ArticleSource interface {
	RecentArticles(ctx context.Context, window time.Duration, limit int) ([]models.Article, error)
}

// Options configure a Pipeline.
type Options struct {
	Window     time.Duration
	Limit      int
	Interval   time.Duration
	// Timeout bounds a refresh started with TryRefresh.
	Timeout    time.Duration
	Clustering clustering.Options
}

// Snapshot is one published refresh result. It is never mutated.
type Snapshot struct {
	RunID       string
	Clusters    []models.StoryCluster
	Articles    int
	RefreshedAt time.Time
	Duration    time.Duration
}

// Status reports the state of the pipeline.
type Status struct {
	RunID       string       `json:"runId,omitempty"`
	Refreshing  bool         `json:"refreshing"`
	RefreshedAt time.Time    `json:"refreshedAt"`
	Duration    string       `json:"duration,omitempty"`
	Articles    int          `json:"articles"`
	Clusters    int          `json:"clusters"`
	Index       search.Stats `json:"index"`
	LastError   string       `json:"lastError,omitempty"`
}

// Pipeline is the application context shared by API handlers.
type Pipeline struct {
	source ArticleSource
	index  *search.Index
	tags   *TagStore
	opts   Options
	log    *slog.Logger
	now    func() time.Time

	current    atomic.Pointer[Snapshot]
	refreshing atomic.Bool
	lastErr    atomic.Pointer[string]
}

// New wires a pipeline. index and tags may be nil.
func New(source ArticleSource, index *search.Index, tags *TagStore, opts Options, logger *slog.Logger) *Pipeline {
	if index == nil {
		index = search.NewIndex()
	}
	if tags == nil {
		tags = NewTagStore()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Window <= 0 {
		opts.Window = clustering.DefaultMaxAge
	}
	if opts.Limit <= 0 {
		opts.Limit = 2000
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	now := opts.Clustering.Now
	if now == nil {
		now = time.Now
	}

	p := &Pipeline{
		source: source,
		index:  index,
		tags:   tags,
		opts:   opts,
		log:    logger,
		now:    now,
	}
	p.current.Store(&Snapshot{})
	return p
}

// Index is the search index rebuilt by every refresh.
func (p *Pipeline) Index() *search.Index {
	return p.index
}

// Tags is the override store applied to published clusters.
func (p *Pipeline) Tags() *TagStore {
	return p.tags
}

// Now is the clock used for ranking.
func (p *Pipeline) Now() time.Time {
	return p.now()
}

// Snapshot returns the current published result.
func (p *Pipeline) Snapshot() *Snapshot {
	return p.current.Load()
}

// Clusters returns the published clusters with tag overrides applied.
func (p *Pipeline) Clusters() []models.StoryCluster {
	return ranking.ApplyTags(p.current.Load().Clusters, p.tags.All())
}

// Refresh loads recent articles and publishes a new snapshot. Only one
// refresh runs at a time; concurrent triggers get ErrRefreshInProgress.
// On error the previous snapshot stays published.
func (p *Pipeline) Refresh(ctx context.Context) (*Snapshot, error) {
	if !p.refreshing.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer p.refreshing.Store(false)

	return p.refresh(ctx)
}

// TryRefresh claims the refresh slot and runs the refresh in the
// background, detached from ctx cancellation but bounded by the configured
// timeout. It returns ErrRefreshInProgress without starting anything when
// another refresh holds the slot.
func (p *Pipeline) TryRefresh(ctx context.Context) error {
	if !p.refreshing.CompareAndSwap(false, true) {
		return ErrRefreshInProgress
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.Timeout)
	go func() {
		defer cancel()
		defer p.refreshing.Store(false)
		// refresh logs and records its own failures.
		_, _ = p.refresh(ctx)
	}()
	return nil
}

func (p *Pipeline) refresh(ctx context.Context) (*Snapshot, error) {
	runID := uuid.NewString()
	start := time.Now()
	log := p.log.With(slog.String("run_id", runID))

	articles, err := p.source.RecentArticles(ctx, p.opts.Window, p.opts.Limit)
	if err != nil {
		msg := err.Error()
		p.lastErr.Store(&msg)
		metrics.RecordRefresh("error", time.Since(start), 0, 0)
		log.Error("refresh load failed", slog.String("err", msg))
		return nil, fmt.Errorf("load articles: %w", err)
	}

	snap := p.publish(runID, articles, start)
	p.lastErr.Store(nil)

	metrics.RecordRefresh("success", snap.Duration, len(snap.Clusters), p.index.Stats().Documents)
	log.Info("refresh complete",
		slog.Int("articles", snap.Articles),
		slog.Int("clusters", len(snap.Clusters)),
		slog.Duration("duration", snap.Duration))
	return snap, nil
}

// Publish clusters and indexes articles directly, bypassing the source.
func (p *Pipeline) Publish(articles []models.Article) *Snapshot {
	return p.publish(uuid.NewString(), articles, time.Now())
}

func (p *Pipeline) publish(runID string, articles []models.Article, start time.Time) *Snapshot {
	opts := p.opts.Clustering
	opts.Now = p.now
	clusters := clustering.Cluster(articles, opts)
	clusters = ranking.Score(clusters, p.now())

	p.index.Rebuild(articles)

	snap := &Snapshot{
		RunID:       runID,
		Clusters:    clusters,
		Articles:    len(articles),
		RefreshedAt: p.now().UTC(),
		Duration:    time.Since(start),
	}
	p.current.Store(snap)
	return snap
}

// Run refreshes immediately and then on every interval until ctx ends.
func (p *Pipeline) Run(ctx context.Context) {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.Refresh(ctx); err != nil && !errors.Is(err, ErrRefreshInProgress) && ctx.Err() == nil {
			p.log.Warn("scheduled refresh failed", slog.String("err", err.Error()))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Status describes the last refresh and the index behind it.
func (p *Pipeline) Status() Status {
	snap := p.current.Load()
	st := Status{
		RunID:       snap.RunID,
		Refreshing:  p.refreshing.Load(),
		RefreshedAt: snap.RefreshedAt,
		Articles:    snap.Articles,
		Clusters:    len(snap.Clusters),
		Index:       p.index.Stats(),
	}
	if snap.Duration > 0 {
		st.Duration = snap.Duration.String()
	}
	if msg := p.lastErr.Load(); msg != nil {
		st.LastError = *msg
	}
	return st
}
