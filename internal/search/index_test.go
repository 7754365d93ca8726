package search_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/search"
)

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func article(id, title string, age time.Duration, category models.Category) models.Article {
	return models.Article{
		ID:          id,
		Title:       title,
		URL:         "https://example.com/" + id,
		PublishedAt: base.Add(-age),
		Source:      models.Source{ID: "src-" + id, Name: "Wire", ShortName: "Wire", Priority: 2},
		Category:    category,
	}
}

func councilArticles() []models.Article {
	return []models.Article{
		article("a1", "City Council Approves Budget", time.Hour, models.CategoryPolitics),
		article("a2", "Budget Vote Passes Council", 2*time.Hour, models.CategoryPolitics),
		article("a3", "Surf Report: Waves Building", 3*time.Hour, models.CategoryGeneral),
	}
}

func ids(docs []models.ScoredDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestSearchRanksMatchingDocuments(t *testing.T) {
	idx := search.NewIndex()
	idx.Rebuild(councilArticles())

	got := idx.Search("council budget", search.SearchOptions{Limit: 10})
	require.ElementsMatch(t, []string{"a1", "a2"}, ids(got))
	for _, d := range got {
		require.Greater(t, d.Score, 0.0)
	}
}

func TestSearchRewardsRarerTerms(t *testing.T) {
	idx := search.NewIndex()
	idx.Rebuild(councilArticles())

	// "approve" appears once while "council" appears twice.
	got := idx.Search("council approves", search.SearchOptions{})
	require.Equal(t, []string{"a1", "a2"}, ids(got))
	require.Greater(t, got[0].Score, got[1].Score)
}

func TestSearchNoMatches(t *testing.T) {
	idx := search.NewIndex()
	idx.Rebuild(councilArticles())

	require.Empty(t, idx.Search("volcano", search.SearchOptions{}))
}

func TestSearchEmptyQueryListsNewestFirst(t *testing.T) {
	idx := search.NewIndex()
	idx.Rebuild(councilArticles())

	require.Equal(t, []string{"a1", "a2", "a3"}, ids(idx.Search("", search.SearchOptions{})))
	require.Equal(t, []string{"a3"}, ids(idx.Search("  ", search.SearchOptions{Category: "general"})))
	require.Equal(t, []string{"a1"}, ids(idx.Search("", search.SearchOptions{Limit: 1})))
}

func TestSearchFilters(t *testing.T) {
	idx := search.NewIndex()
	idx.Rebuild(councilArticles())

	got := idx.Search("council", search.SearchOptions{Source: "src-a2"})
	require.Equal(t, []string{"a2"}, ids(got))

	got = idx.Search("", search.SearchOptions{From: base.Add(-150 * time.Minute), To: base})
	require.Equal(t, []string{"a1", "a2"}, ids(got))

	require.Empty(t, idx.Search("council", search.SearchOptions{Category: "business"}))
}

func TestRebuildDeterministic(t *testing.T) {
	first := search.NewIndex()
	first.Rebuild(councilArticles())
	second := search.NewIndex()
	second.Rebuild(councilArticles())

	for _, q := range []string{"council budget", "waves", "", "passes council"} {
		require.Equal(t, first.Search(q, search.SearchOptions{}), second.Search(q, search.SearchOptions{}), q)
	}

	before := first.Search("council budget", search.SearchOptions{})
	first.Rebuild(councilArticles())
	require.Equal(t, before, first.Search("council budget", search.SearchOptions{}))
}

func TestRebuildReplacesContents(t *testing.T) {
	idx := search.NewIndex()
	idx.Rebuild(councilArticles())
	idx.Rebuild([]models.Article{article("b1", "Harbor Dredging Starts", 0, models.CategoryEnvironment)})

	require.Empty(t, idx.Search("council", search.SearchOptions{}))
	require.Equal(t, []string{"b1"}, ids(idx.Search("harbor", search.SearchOptions{})))

	stats := idx.Stats()
	require.Equal(t, 1, stats.Documents)
	require.Equal(t, uint64(2), stats.Generation)
}

func TestAddDocument(t *testing.T) {
	idx := search.NewIndex()
	idx.Rebuild(councilArticles())

	idx.AddDocument(article("a4", "Council Delays Rail Decision", 0, models.CategoryPolitics))
	require.Equal(t, 4, idx.Stats().Documents)
	require.Len(t, idx.Search("council", search.SearchOptions{}), 3)

	// Same id replaces the earlier document.
	idx.AddDocument(article("a4", "Rail Decision Delayed Again", 0, models.CategoryPolitics))
	require.Equal(t, 4, idx.Stats().Documents)
	require.Len(t, idx.Search("council", search.SearchOptions{}), 2)
	require.Equal(t, []string{"a4"}, ids(idx.Search("rail", search.SearchOptions{})))
}

func TestClear(t *testing.T) {
	idx := search.NewIndex()
	idx.Rebuild(councilArticles())
	idx.Clear()

	require.Empty(t, idx.Search("", search.SearchOptions{}))
	require.Zero(t, idx.Stats().Terms)
}

func TestSuggest(t *testing.T) {
	idx := search.NewIndex()
	idx.Rebuild([]models.Article{
		article("p1", "Politics Heat Up Before Primary", 0, models.CategoryPolitics),
		article("p2", "Politics And Policing", time.Hour, models.CategoryPolitics),
		article("p3", "New Police Chief Named", 2*time.Hour, models.CategoryCommunity),
	})

	got := idx.Suggest("pol", 5)
	require.NotEmpty(t, got)
	require.Equal(t, "politics", got[0])
	require.Contains(t, got, "policing")
	require.Contains(t, got, "police")

	require.Equal(t, []string{"politics"}, idx.Suggest("POL", 1))
	require.Empty(t, idx.Suggest("p", 5))
	require.Empty(t, idx.Suggest("zz", 5))
}

func TestSuggestMatchesStem(t *testing.T) {
	idx := search.NewIndex()
	idx.Rebuild([]models.Article{article("c1", "Cities Brace For Storm", 0, models.CategoryEmergency)})

	require.Equal(t, []string{"cities"}, idx.Suggest("city", 5))
}

func TestSuggestDropsWordsOfReplacedDocument(t *testing.T) {
	idx := search.NewIndex()
	idx.Rebuild([]models.Article{
		article("d1", "Votes Counted", time.Hour, models.CategoryPolitics),
		article("d2", "Vote Delayed", 2*time.Hour, models.CategoryPolitics),
	})
	require.Equal(t, []string{"vote"}, idx.Suggest("vote", 1))

	idx.AddDocument(article("d2", "Rain Delayed", 2*time.Hour, models.CategoryGeneral))
	require.Equal(t, []string{"votes"}, idx.Suggest("vot", 5))
	require.Equal(t, []string{"delayed"}, idx.Suggest("del", 5))

	idx.AddDocument(article("d1", "Rain Returns", time.Hour, models.CategoryGeneral))
	require.Empty(t, idx.Suggest("vot", 5))
}

func TestConcurrentReadersDuringRebuild(t *testing.T) {
	idx := search.NewIndex()
	idx.Rebuild(councilArticles())

	batch := make([]models.Article, 50)
	for i := range batch {
		batch[i] = article(fmt.Sprintf("n%02d", i), "Council Budget Hearing", time.Duration(i)*time.Minute, models.CategoryPolitics)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				n := len(idx.Search("council", search.SearchOptions{Limit: 100}))
				// Either the old generation (2 hits) or a complete new one (50).
				if n != 2 && n != 50 {
					t.Errorf("observed partial index with %d hits", n)
					return
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			idx.Rebuild(batch)
		} else {
			idx.Rebuild(councilArticles())
		}
	}
	close(stop)
	wg.Wait()
}
