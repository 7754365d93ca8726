package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/story-radar/backend/internal/clustering"
	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/pipeline"
	"github.com/DeafMist/story-radar/backend/internal/ranking"
	"github.com/DeafMist/story-radar/backend/internal/search"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type stubSource struct {
	articles []models.Article
	err      error
	block    chan struct{}
	started  chan struct{}
	calls    int
}

func (s *stubSource) RecentArticles(ctx context.Context, window time.Duration, limit int) ([]models.Article, error) {
	s.calls++
	if s.started != nil {
		close(s.started)
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.articles, s.err
}

func article(id, sourceID, title string, age time.Duration) models.Article {
	return models.Article{
		ID:          id,
		Title:       title,
		URL:         "https://" + sourceID + ".example/" + id,
		PublishedAt: now.Add(-age),
		Source:      models.Source{ID: sourceID, Name: sourceID, ShortName: sourceID, Priority: 2},
		Category:    models.CategoryPolitics,
	}
}

func batch() []models.Article {
	return []models.Article{
		article("beat-1", "beat", "Council Approves Rail Budget", 10*time.Minute),
		article("star-1", "star", "Council Approves Rail Budget", 20*time.Minute),
		article("hnn-1", "hnn", "Surf Warning Issued For North Shores", time.Hour),
	}
}

func newPipeline(src pipeline.ArticleSource) *pipeline.Pipeline {
	return pipeline.New(src, nil, nil, pipeline.Options{
		Clustering: clustering.Options{Now: func() time.Time { return now }},
	}, nil)
}

func TestRefreshPublishesClustersAndIndex(t *testing.T) {
	p := newPipeline(&stubSource{articles: batch()})

	snap, err := p.Refresh(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, snap.RunID)
	require.Equal(t, 3, snap.Articles)
	require.Len(t, snap.Clusters, 2)

	top := ranking.TopStories(p.Clusters(), 1, p.Now())
	require.Equal(t, 2, top[0].ArticleCount)
	require.Equal(t, "politics", top[0].Tag)

	hits := p.Index().Search("rail budget", search.SearchOptions{})
	require.Len(t, hits, 2)

	st := p.Status()
	require.False(t, st.Refreshing)
	require.Equal(t, 2, st.Clusters)
	require.Equal(t, 3, st.Index.Documents)
	require.Equal(t, now, st.RefreshedAt)
	require.Empty(t, st.LastError)
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	src := &stubSource{articles: batch()}
	p := newPipeline(src)

	_, err := p.Refresh(context.Background())
	require.NoError(t, err)
	before := p.Snapshot()

	src.err = errors.New("elasticsearch down")
	_, err = p.Refresh(context.Background())
	require.ErrorContains(t, err, "elasticsearch down")
	require.Same(t, before, p.Snapshot())
	require.Equal(t, "elasticsearch down", p.Status().LastError)
	require.Equal(t, 3, p.Index().Stats().Documents)
}

func TestRefreshSkipsWhileRunning(t *testing.T) {
	src := &stubSource{articles: batch(), block: make(chan struct{}), started: make(chan struct{})}
	p := newPipeline(src)

	done := make(chan error, 1)
	go func() {
		_, err := p.Refresh(context.Background())
		done <- err
	}()
	<-src.started

	require.True(t, p.Status().Refreshing)
	_, err := p.Refresh(context.Background())
	require.ErrorIs(t, err, pipeline.ErrRefreshInProgress)

	close(src.block)
	require.NoError(t, <-done)
	require.False(t, p.Status().Refreshing)
}

func TestTryRefreshClaimsSlotBeforeReturning(t *testing.T) {
	src := &stubSource{articles: batch(), block: make(chan struct{}), started: make(chan struct{})}
	p := newPipeline(src)

	require.NoError(t, p.TryRefresh(context.Background()))
	require.True(t, p.Status().Refreshing)
	require.ErrorIs(t, p.TryRefresh(context.Background()), pipeline.ErrRefreshInProgress)
	_, err := p.Refresh(context.Background())
	require.ErrorIs(t, err, pipeline.ErrRefreshInProgress)

	<-src.started
	close(src.block)
	require.Eventually(t, func() bool {
		st := p.Status()
		return !st.Refreshing && st.Clusters == 2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, src.calls)
}

func TestTryRefreshOutlivesCallerContext(t *testing.T) {
	src := &stubSource{articles: batch(), block: make(chan struct{}), started: make(chan struct{})}
	p := newPipeline(src)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.TryRefresh(ctx))
	cancel()

	<-src.started
	close(src.block)
	require.Eventually(t, func() bool { return p.Status().Index.Documents == 3 }, time.Second, 5*time.Millisecond)
	require.Empty(t, p.Status().LastError)
}

func TestTagOverridesApplyWithoutReclustering(t *testing.T) {
	p := newPipeline(&stubSource{})
	snap := p.Publish(batch())

	var pairID string
	for _, c := range snap.Clusters {
		if c.ArticleCount == 2 {
			pairID = c.ID
		}
	}
	require.NotEmpty(t, pairID)

	stored, err := p.Tags().Set(pairID, "Rail Project")
	require.NoError(t, err)
	require.Equal(t, "rail-project", stored)

	tagged := ranking.FilterByTag(p.Clusters(), "rail-project")
	require.Len(t, tagged, 1)
	require.Equal(t, pairID, tagged[0].ID)
	require.Equal(t, models.CategoryPolitics, tagged[0].Category)
	require.Equal(t, snap.Clusters[0].ImportanceScore, p.Snapshot().Clusters[0].ImportanceScore)

	_, err = p.Tags().Set(pairID, "")
	require.NoError(t, err)
	require.Empty(t, ranking.FilterByTag(p.Clusters(), "rail-project"))
}

func TestRunRefreshesUntilCanceled(t *testing.T) {
	src := &stubSource{articles: batch()}
	p := pipeline.New(src, nil, nil, pipeline.Options{Interval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.Status().Index.Documents == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestLoadTagStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.yaml")
	require.NoError(t, os.WriteFile(path, []byte("overrides:\n  cluster-beat-1: Red Hill\n"), 0o600))

	store, err := pipeline.LoadTagStore(path)
	require.NoError(t, err)
	tag, ok := store.Get("cluster-beat-1")
	require.True(t, ok)
	require.Equal(t, "red-hill", tag)

	empty, err := pipeline.LoadTagStore("")
	require.NoError(t, err)
	require.Empty(t, empty.All())

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("overrides:\n  c: x\n"), 0o600))
	_, err = pipeline.LoadTagStore(bad)
	require.ErrorIs(t, err, ranking.ErrInvalidTag)
}
