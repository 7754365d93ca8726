package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// articleMapping pins exact-match fields to keyword so that term filters
// on hyphenated ids and categories hit. Dynamic mapping would analyze
// them as text.
var articleMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":          map[string]any{"type": "keyword"},
			"title":       map[string]any{"type": "text"},
			"url":         map[string]any{"type": "keyword"},
			"summary":     map[string]any{"type": "text"},
			"author":      map[string]any{"type": "text"},
			"publishedAt": map[string]any{"type": "date"},
			"category":    map[string]any{"type": "keyword"},
			"keywords":    map[string]any{"type": "keyword"},
			"source": map[string]any{
				"properties": map[string]any{
					"id":        map[string]any{"type": "keyword"},
					"name":      map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
					"shortName": map[string]any{"type": "keyword"},
					"url":       map[string]any{"type": "keyword"},
					"type":      map[string]any{"type": "keyword"},
					"region":    map[string]any{"type": "keyword"},
					"priority":  map[string]any{"type": "integer"},
				},
			},
		},
	},
}

// EnsureIndex creates the article index with explicit mappings when it
// does not exist yet. An existing index is left untouched.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("check index failed: %s", res.Status())
	}

	payload, err := json.Marshal(articleMapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		// Another service created it between the two calls.
		if strings.Contains(string(data), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("create index failed: %s", strings.TrimSpace(string(data)))
	}

	c.log.Info("created elasticsearch index", slog.String("index", c.index))
	return nil
}
