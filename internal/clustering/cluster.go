// Package clustering groups articles from different outlets into story clusters.
package clustering

import (
	"sort"
	"time"

	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/similarity"
)

const (
	DefaultThreshold      = 0.25
	DefaultMaxClusterSize = 10
	DefaultMaxAge         = 72 * time.Hour
)

// Options tune a clustering pass. Zero values fall back to the defaults.
type Options struct {
	Threshold      float64
	MaxClusterSize int
	MaxAge         time.Duration
	Now            func() time.Time
}

// DefaultOptions returns the production tuning.
func DefaultOptions() Options {
	return Options{
		Threshold:      DefaultThreshold,
		MaxClusterSize: DefaultMaxClusterSize,
		MaxAge:         DefaultMaxAge,
		Now:            time.Now,
	}
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxClusterSize <= 0 {
		o.MaxClusterSize = DefaultMaxClusterSize
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultMaxAge
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type edge struct {
	i, j  int
	score float64
}

// slot is one cluster under construction.
type slot struct {
	members []int
	sources map[string]struct{}
}

// Cluster groups recent articles into story clusters.
//
// Pairs scoring at least the threshold become edges, visited from the
// strongest down. An edge joins an unassigned article to its partner's
// cluster when that cluster has room and no article from the same
// outlet, or starts a new cluster when both ends are unassigned. Two
// clusters are never merged. Articles left over become singletons.
func Cluster(articles []models.Article, opts Options) []models.StoryCluster {
	opts = opts.withDefaults()

	recent := filterRecent(articles, opts.Now().Add(-opts.MaxAge))
	if len(recent) == 0 {
		return []models.StoryCluster{}
	}

	edges := buildEdges(recent, opts.Threshold)
	slots, owner := assign(recent, edges, opts.MaxClusterSize)

	out := make([]models.StoryCluster, 0, len(slots)+len(recent))
	for _, s := range slots {
		members := make([]models.Article, 0, len(s.members))
		for _, idx := range s.members {
			members = append(members, recent[idx])
		}
		out = append(out, build("cluster-", members))
	}
	for idx, a := range recent {
		if owner[idx] < 0 {
			out = append(out, build("single-", []models.Article{a}))
		}
	}

	sortForDisplay(out)
	return out
}

func filterRecent(articles []models.Article, cutoff time.Time) []models.Article {
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if a.PublishedAt.After(cutoff) {
			out = append(out, a)
		}
	}
	return out
}

func buildEdges(articles []models.Article, threshold float64) []edge {
	features := make([]similarity.Features, len(articles))
	for i, a := range articles {
		features[i] = similarity.Extract(a)
	}

	var edges []edge
	for i := 0; i < len(articles); i++ {
		for j := i + 1; j < len(articles); j++ {
			if articles[i].Source.ID == articles[j].Source.ID {
				continue
			}
			if score := similarity.Score(features[i], features[j]); score >= threshold {
				edges = append(edges, edge{i: i, j: j, score: score})
			}
		}
	}

	// Stable so that equal scores keep pair order and reruns agree.
	sort.SliceStable(edges, func(a, b int) bool {
		return edges[a].score > edges[b].score
	})
	return edges
}

// assign runs the greedy pass. owner maps an article index to its slot,
// or -1 while unassigned.
func assign(articles []models.Article, edges []edge, maxSize int) ([]*slot, []int) {
	owner := make([]int, len(articles))
	for i := range owner {
		owner[i] = -1
	}

	var slots []*slot
	join := func(s int, idx int) {
		target := slots[s]
		if len(target.members) >= maxSize {
			return
		}
		src := articles[idx].Source.ID
		if _, dup := target.sources[src]; dup {
			return
		}
		target.members = append(target.members, idx)
		target.sources[src] = struct{}{}
		owner[idx] = s
	}

	for _, e := range edges {
		oi, oj := owner[e.i], owner[e.j]
		switch {
		case oi >= 0 && oj >= 0:
			continue
		case oi >= 0:
			join(oi, e.j)
		case oj >= 0:
			join(oj, e.i)
		case maxSize >= 2:
			slots = append(slots, &slot{
				members: []int{e.i, e.j},
				sources: map[string]struct{}{
					articles[e.i].Source.ID: {},
					articles[e.j].Source.ID: {},
				},
			})
			owner[e.i], owner[e.j] = len(slots)-1, len(slots)-1
		}
	}

	return slots, owner
}
