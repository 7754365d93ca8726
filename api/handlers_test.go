package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/story-radar/backend/internal/clustering"
	"github.com/DeafMist/story-radar/backend/internal/config"
	"github.com/DeafMist/story-radar/backend/internal/elasticsearch"
	"github.com/DeafMist/story-radar/backend/internal/logger"
	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/pipeline"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type stubArchive struct {
	healthErr error
	listErr   error
	params    elasticsearch.ListParams
	articles  []models.Article
	block     chan struct{}
	started   chan struct{}
}

func (s *stubArchive) Health(context.Context) error { return s.healthErr }

func (s *stubArchive) ListArticles(_ context.Context, params elasticsearch.ListParams) (*elasticsearch.ListResult, error) {
	s.params = params
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &elasticsearch.ListResult{Total: int64(len(s.articles)), Items: s.articles}, nil
}

func (s *stubArchive) RecentArticles(ctx context.Context, _ time.Duration, _ int) ([]models.Article, error) {
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
	return s.articles, nil
}

func article(id, sourceID, title string, age time.Duration) models.Article {
	return models.Article{
		ID:          id,
		Title:       title,
		Summary:     "Lawmakers met on Friday.",
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

func newTestServer(t *testing.T, store *stubArchive) (*server, *pipeline.Pipeline) {
	t.Helper()
	pipe := pipeline.New(store, nil, nil, pipeline.Options{
		Clustering: clustering.Options{Now: func() time.Time { return now }},
	}, nil)
	cfg := &config.API{DefaultPage: 20, MaxPage: 100, SearchCacheSize: 16}

	srv, err := newServer(logger.Discard(), cfg, store, pipe)
	require.NoError(t, err)
	return srv, pipe
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func pairID(t *testing.T, pipe *pipeline.Pipeline) string {
	t.Helper()
	for _, c := range pipe.Snapshot().Clusters {
		if c.ArticleCount == 2 {
			return c.ID
		}
	}
	t.Fatal("no multi-source cluster published")
	return ""
}

func TestStories(t *testing.T) {
	srv, pipe := newTestServer(t, &stubArchive{})
	pipe.Publish(batch())
	h := srv.routes()

	cases := []struct {
		name   string
		target string
		count  int
	}{
		{name: "all", target: "/api/stories", count: 2},
		{name: "limit", target: "/api/stories?limit=1", count: 1},
		{name: "category param", target: "/api/stories?category=politics", count: 2},
		{name: "category route", target: "/api/stories/category/sports", count: 0},
		{name: "lead", target: "/api/stories/lead", count: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tc.target, "")
			require.Equal(t, http.StatusOK, rec.Code)
			res := decode[storiesResponse](t, rec)
			require.Equal(t, tc.count, res.Count)
			require.Len(t, res.Stories, tc.count)
		})
	}

	res := decode[storiesResponse](t, do(t, h, http.MethodGet, "/api/stories", ""))
	require.Equal(t, 2, res.Stories[0].ArticleCount)
}

func TestSetTag(t *testing.T) {
	srv, pipe := newTestServer(t, &stubArchive{})
	pipe.Publish(batch())
	h := srv.routes()
	id := pairID(t, pipe)

	rec := do(t, h, http.MethodPut, "/api/stories/"+id+"/tag", `{"tag":"Rail Project"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "rail-project", decode[map[string]string](t, rec)["tag"])

	res := decode[storiesResponse](t, do(t, h, http.MethodGet, "/api/stories?tag=rail-project", ""))
	require.Equal(t, 1, res.Count)
	require.Equal(t, id, res.Stories[0].ID)
	require.True(t, res.Stories[0].TagOverride)

	tags := decode[map[string][]map[string]any](t, do(t, h, http.MethodGet, "/api/tags", ""))
	require.Len(t, tags["tags"], 2)

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/api/stories/missing/tag", `{"tag":"rail"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/stories/"+id+"/tag", `{"tag":"x"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/stories/"+id+"/tag", `not json`).Code)
}

func TestSearchClusters(t *testing.T) {
	srv, pipe := newTestServer(t, &stubArchive{})
	pipe.Publish(batch())
	h := srv.routes()

	rec := do(t, h, http.MethodGet, "/api/search?q=rail", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[storiesResponse](t, rec)
	require.Equal(t, 1, res.Count)
	require.Equal(t, pairID(t, pipe), res.Stories[0].ID)
	require.Equal(t, 1, srv.results.Len())

	cached := decode[storiesResponse](t, do(t, h, http.MethodGet, "/api/search?q=rail", ""))
	require.Equal(t, res.Stories[0].ID, cached.Stories[0].ID)
	require.Equal(t, 1, srv.results.Len())

	none := decode[storiesResponse](t, do(t, h, http.MethodGet, "/api/search?q=volcano", ""))
	require.Zero(t, none.Count)

	// A new snapshot changes the cache key.
	pipe.Publish(batch()[2:])
	moved := decode[storiesResponse](t, do(t, h, http.MethodGet, "/api/search?q=rail", ""))
	require.Zero(t, moved.Count)
}

func TestSearchDocumentsAndSuggest(t *testing.T) {
	srv, pipe := newTestServer(t, &stubArchive{})
	pipe.Publish(batch())
	h := srv.routes()

	docs := decode[documentsResponse](t, do(t, h, http.MethodGet, "/api/search/documents?q=rail+budget", ""))
	require.Equal(t, 2, docs.Count)
	require.Equal(t, "rail budget", docs.Query)
	require.Equal(t, "beat-1", docs.Results[0].ID)

	filtered := decode[documentsResponse](t, do(t, h, http.MethodGet, "/api/search/documents?q=rail&source=star", ""))
	require.Equal(t, 1, filtered.Count)
	require.Equal(t, "star-1", filtered.Results[0].ID)

	from := now.Add(-15 * time.Minute).Format(time.RFC3339)
	recent := decode[documentsResponse](t, do(t, h, http.MethodGet, "/api/search/documents?q=rail&from="+from, ""))
	require.Equal(t, 1, recent.Count)

	sugg := decode[map[string][]string](t, do(t, h, http.MethodGet, "/api/search/suggest?q=cou", ""))
	require.Equal(t, []string{"council"}, sugg["suggestions"])

	short := decode[map[string][]string](t, do(t, h, http.MethodGet, "/api/search/suggest?q=c", ""))
	require.Empty(t, short["suggestions"])
}

func TestArticles(t *testing.T) {
	store := &stubArchive{articles: batch()}
	srv, _ := newTestServer(t, store)
	h := srv.routes()

	rec := do(t, h, http.MethodGet, "/api/articles?source=beat&category=politics&limit=500&offset=40&from=2024-06-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "beat", store.params.Source)
	require.Equal(t, "politics", store.params.Category)
	require.Equal(t, 100, store.params.Size)
	require.Equal(t, 40, store.params.From)
	require.NotNil(t, store.params.Start)
	require.Nil(t, store.params.End)

	res := decode[elasticsearch.ListResult](t, rec)
	require.EqualValues(t, 3, res.Total)
	require.Len(t, res.Items, 3)
}

func TestArticlesUnknownCategory(t *testing.T) {
	store := &stubArchive{listErr: fmt.Errorf("%w: %q", models.ErrUnknownCategory, "sports")}
	srv, _ := newTestServer(t, store)

	rec := do(t, srv.routes(), http.MethodGet, "/api/articles?category=sports", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decode[errorResponse](t, rec).Error, "unknown category")

	store.listErr = errors.New("search failed")
	rec = do(t, srv.routes(), http.MethodGet, "/api/articles", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	store := &stubArchive{}
	srv, _ := newTestServer(t, store)
	h := srv.routes()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)

	store.healthErr = errors.New("cluster red")
	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "cluster red", decode[errorResponse](t, rec).Error)
}

func TestRefresh(t *testing.T) {
	store := &stubArchive{articles: batch()}
	srv, pipe := newTestServer(t, store)
	h := srv.routes()

	rec := do(t, h, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Eventually(t, func() bool {
		st := pipe.Status()
		return st.Clusters == 2 && !st.Refreshing
	}, time.Second, 5*time.Millisecond)

	stats := decode[pipeline.Status](t, do(t, h, http.MethodGet, "/api/stats", ""))
	require.Equal(t, 3, stats.Articles)
	require.Equal(t, 3, stats.Index.Documents)
}

func TestRefreshConflict(t *testing.T) {
	store := &stubArchive{articles: batch(), block: make(chan struct{}), started: make(chan struct{})}
	srv, pipe := newTestServer(t, store)
	h := srv.routes()

	done := make(chan error, 1)
	go func() {
		_, err := pipe.Refresh(context.Background())
		done <- err
	}()
	<-store.started

	rec := do(t, h, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	close(store.block)
	require.NoError(t, <-done)
}

func TestRefreshSecondTriggerConflicts(t *testing.T) {
	store := &stubArchive{articles: batch(), block: make(chan struct{}), started: make(chan struct{})}
	srv, pipe := newTestServer(t, store)
	h := srv.routes()

	require.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/api/refresh", "").Code)
	require.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/refresh", "").Code)

	<-store.started
	close(store.block)
	require.Eventually(t, func() bool {
		st := pipe.Status()
		return st.Clusters == 2 && !st.Refreshing
	}, time.Second, 5*time.Millisecond)
}

func TestClampInt(t *testing.T) {
	require.Equal(t, 20, clampInt("", 20, 100))
	require.Equal(t, 20, clampInt("abc", 20, 100))
	require.Equal(t, 20, clampInt("-5", 20, 100))
	require.Equal(t, 100, clampInt("500", 20, 100))
	require.Equal(t, 7, clampInt("7", 20, 100))
}

func TestParseTime(t *testing.T) {
	require.Nil(t, parseTime(""))
	require.Nil(t, parseTime("yesterday"))
	ts := parseTime("2024-06-01T10:00:00Z")
	require.NotNil(t, ts)
	require.Equal(t, 10, ts.Hour())
}
