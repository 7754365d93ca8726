package pipeline

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/DeafMist/story-radar/backend/internal/ranking"
)

// TagStore holds user-chosen tags keyed by cluster id. Tags only change
// how clusters are displayed and filtered, never how they are built.
type TagStore struct {
	mu   sync.RWMutex
	tags map[string]string
}

// NewTagStore returns an empty store.
func NewTagStore() *TagStore {
	return &TagStore{tags: make(map[string]string)}
}

type tagFile struct {
	Overrides map[string]string `yaml:"overrides"`
}

// LoadTagStore seeds a store from a YAML file of the form
//
//	overrides:
//	  cluster-abc: red-hill
//
// An empty path returns an empty store.
func LoadTagStore(path string) (*TagStore, error) {
	store := NewTagStore()
	if strings.TrimSpace(path) == "" {
		return store, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tag overrides: %w", err)
	}

	var file tagFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode tag overrides: %w", err)
	}
	for id, tag := range file.Overrides {
		if _, err := store.Set(id, tag); err != nil {
			return nil, fmt.Errorf("tag override %s: %w", id, err)
		}
	}
	return store, nil
}

// Set normalizes and stores a tag for clusterID, returning the stored
// form. An empty tag removes the override.
func (s *TagStore) Set(clusterID, tag string) (string, error) {
	clusterID = strings.TrimSpace(clusterID)
	if clusterID == "" {
		return "", fmt.Errorf("%w: cluster id is required", ranking.ErrInvalidTag)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(tag) == "" {
		delete(s.tags, clusterID)
		return "", nil
	}

	normalized, err := ranking.NormalizeTag(tag)
	if err != nil {
		return "", err
	}
	s.tags[clusterID] = normalized
	return normalized, nil
}

// Get returns the override for clusterID, if any.
func (s *TagStore) Get(clusterID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tag, ok := s.tags[clusterID]
	return tag, ok
}

// All returns a copy of every override.
func (s *TagStore) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.tags))
	for k, v := range s.tags {
		out[k] = v
	}
	return out
}
