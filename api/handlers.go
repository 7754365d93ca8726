package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DeafMist/story-radar/backend/internal/config"
	"github.com/DeafMist/story-radar/backend/internal/elasticsearch"
	"github.com/DeafMist/story-radar/backend/internal/metrics"
	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/pipeline"
	"github.com/DeafMist/story-radar/backend/internal/ranking"
	"github.com/DeafMist/story-radar/backend/internal/search"
)

// archive is the slice of the Elasticsearch client the handlers need.
type archive interface {
	Health(ctx context.Context) error
	ListArticles(ctx context.Context, params elasticsearch.ListParams) (*elasticsearch.ListResult, error)
}

type server struct {
	log     *slog.Logger
	cfg     *config.API
	archive archive
	pipe    *pipeline.Pipeline
	// results caches cluster searches for the current snapshot.
	results *lru.Cache[string, []models.StoryCluster]
}

func newServer(log *slog.Logger, cfg *config.API, store archive, pipe *pipeline.Pipeline) (*server, error) {
	results, err := lru.New[string, []models.StoryCluster](cfg.SearchCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	return &server{log: log, cfg: cfg, archive: store, pipe: pipe, results: results}, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/stories", s.handleStories)
		r.Get("/stories/lead", s.handleLeadStories)
		r.Get("/stories/category/{category}", s.handleStoriesByCategory)
		r.Put("/stories/{id}/tag", s.handleSetTag)
		r.Get("/tags", s.handleTags)
		r.Get("/search", s.handleSearchClusters)
		r.Get("/search/documents", s.handleSearchDocuments)
		r.Get("/search/suggest", s.handleSuggest)
		r.Get("/articles", s.handleArticles)
		r.Get("/stats", s.handleStats)
		r.Post("/refresh", s.handleRefresh)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type storiesResponse struct {
	Stories []models.StoryCluster `json:"stories"`
	Count   int                   `json:"count"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.archive.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "pipeline": s.pipe.Status()})
}

func (s *server) handleStories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.writeStories(w, q.Get("category"), q.Get("tag"), s.limit(r))
}

func (s *server) handleStoriesByCategory(w http.ResponseWriter, r *http.Request) {
	s.writeStories(w, chi.URLParam(r, "category"), "", s.limit(r))
}

func (s *server) writeStories(w http.ResponseWriter, category, tag string, limit int) {
	clusters := ranking.FilterByCategory(s.pipe.Clusters(), strings.ToLower(strings.TrimSpace(category)))
	clusters = ranking.FilterByTag(clusters, strings.TrimSpace(tag))
	top := ranking.TopStories(clusters, limit, s.pipe.Now())
	writeJSON(w, http.StatusOK, storiesResponse{Stories: top, Count: len(top)})
}

func (s *server) handleLeadStories(w http.ResponseWriter, r *http.Request) {
	lead := ranking.LeadStories(s.pipe.Clusters(), s.limit(r), s.pipe.Now())
	writeJSON(w, http.StatusOK, storiesResponse{Stories: lead, Count: len(lead)})
}

type tagRequest struct {
	Tag string `json:"tag"`
}

func (s *server) handleSetTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.hasCluster(id) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "story not found"})
		return
	}

	var req tagRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	tag, err := s.pipe.Tags().Set(id, req.Tag)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.results.Purge()

	s.log.Info("story tag updated", slog.String("id", id), slog.String("tag", tag))
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "tag": tag})
}

func (s *server) hasCluster(id string) bool {
	for _, c := range s.pipe.Snapshot().Clusters {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *server) handleTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": ranking.TagCounts(s.pipe.Clusters())})
}

func (s *server) handleSearchClusters(w http.ResponseWriter, r *http.Request) {
	metrics.RecordSearch("clusters")
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	category := strings.ToLower(strings.TrimSpace(q.Get("category")))
	limit := s.limit(r)

	key := fmt.Sprintf("%s|%s|%s|%d", s.pipe.Snapshot().RunID, query, category, limit)
	if hit, ok := s.results.Get(key); ok {
		writeJSON(w, http.StatusOK, storiesResponse{Stories: hit, Count: len(hit)})
		return
	}

	ranked := ranking.TopStories(s.pipe.Clusters(), 0, s.pipe.Now())
	found := search.SearchClusters(ranked, query, search.ClusterSearchOptions{Limit: limit, Category: category})
	s.results.Add(key, found)

	writeJSON(w, http.StatusOK, storiesResponse{Stories: found, Count: len(found)})
}

type documentsResponse struct {
	Query   string                  `json:"query"`
	Results []models.ScoredDocument `json:"results"`
	Count   int                     `json:"count"`
}

func (s *server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	metrics.RecordSearch("documents")
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))

	opts := search.SearchOptions{
		Limit:    s.limit(r),
		Category: q.Get("category"),
		Source:   strings.TrimSpace(q.Get("source")),
	}
	if from := parseTime(q.Get("from")); from != nil {
		opts.From = *from
	}
	if to := parseTime(q.Get("to")); to != nil {
		opts.To = *to
	}

	results := s.pipe.Index().Search(query, opts)
	writeJSON(w, http.StatusOK, documentsResponse{Query: query, Results: results, Count: len(results)})
}

func (s *server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	metrics.RecordSearch("suggest")
	limit := clampInt(r.URL.Query().Get("limit"), search.DefaultSuggestLimit, s.cfg.MaxPage)
	suggestions := s.pipe.Index().Suggest(r.URL.Query().Get("q"), limit)
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *server) handleArticles(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.ListParams{
		Source:   strings.TrimSpace(q.Get("source")),
		Category: strings.TrimSpace(q.Get("category")),
		Start:    parseTime(q.Get("from")),
		End:      parseTime(q.Get("to")),
		From:     clampInt(q.Get("offset"), 0, 10_000),
		Size:     s.limit(r),
	}

	result, err := s.archive.ListArticles(ctx, params)
	if errors.Is(err, models.ErrUnknownCategory) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pipe.Status())
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// Clustering runs off the request path; the response only acknowledges the trigger.
	if err := s.pipe.TryRefresh(r.Context()); err != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}

func (s *server) limit(r *http.Request) int {
	return clampInt(r.URL.Query().Get("limit"), s.cfg.DefaultPage, s.cfg.MaxPage)
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
