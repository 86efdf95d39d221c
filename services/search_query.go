package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/models"
)

const (
	// ServiceHitsPerPage is the number of listings returned by a search
	ServiceHitsPerPage = 20
	// CategoryHitsPerPage is the number of categories returned for a non-blank query
	CategoryHitsPerPage = 5
)

// Search modes
const (
	SearchModeRecent  = "recent"
	SearchModeResults = "results"
)

// highlightKey is the per-hit attribute carrying highlight fragments
const highlightKey = "_highlightResult"

// ServiceHit is one listing returned by the search index. Highlights maps a
// dotted field path to its marked-up fragment, only for fields that matched.
type ServiceHit struct {
	ServiceDocument
	Highlights map[string]string `json:"highlights"`

	raw map[string]interface{}
}

// Display returns the highlighted fragment for field when there is one and
// the raw value otherwise.
func (h ServiceHit) Display(field string) string {
	return display(h.Highlights, h.raw, field)
}

// CategoryHit is one category returned by the search index
type CategoryHit struct {
	CategoryDocument
	IconName   models.Icon       `json:"iconName"`
	Highlights map[string]string `json:"highlights"`

	raw map[string]interface{}
}

// Display returns the highlighted fragment for field or the raw value
func (h CategoryHit) Display(field string) string {
	return display(h.Highlights, h.raw, field)
}

// SearchResults is the normalized answer to a search request. NoResults is
// only set for a non-blank query that found neither listings nor categories;
// a blank query is the recent mode, not an empty result.
type SearchResults struct {
	Query         string        `json:"query"`
	Mode          string        `json:"mode"`
	Services      []ServiceHit  `json:"services"`
	Categories    []CategoryHit `json:"categories"`
	TotalServices int           `json:"totalServices"`
	NoResults     bool          `json:"noResults"`
}

// SearchService queries the search index
type SearchService struct {
	index  SearchIndex
	logger logger.Logger
}

// NewSearchService creates a search service over index
func NewSearchService(index SearchIndex, log logger.Logger) *SearchService {
	return &SearchService{index: index, logger: log}
}

// Search issues one multi-query against the services and categories
// indexes. A blank query skips categories and returns the index's default
// listing order.
func (s *SearchService) Search(ctx context.Context, q string) (*SearchResults, error) {
	q = strings.TrimSpace(q)

	categoryHits := CategoryHitsPerPage
	mode := SearchModeResults
	if q == "" {
		categoryHits = 0
		mode = SearchModeRecent
	}

	res, err := s.index.MultipleQueries(ctx, []SearchQuery{
		{IndexName: ServicesIndex, Query: q, HitsPerPage: ServiceHitsPerPage},
		{IndexName: CategoriesIndex, Query: q, HitsPerPage: categoryHits},
	})
	if err != nil {
		return nil, &IndexSyncError{Index: ServicesIndex, Op: "multiple queries", Err: err}
	}
	if len(res) != 2 {
		return nil, &IndexSyncError{
			Index: ServicesIndex,
			Op:    "multiple queries",
			Err:   fmt.Errorf("expected 2 results, got %d", len(res)),
		}
	}

	results := &SearchResults{
		Query:         q,
		Mode:          mode,
		Services:      make([]ServiceHit, 0, len(res[0].Hits)),
		Categories:    make([]CategoryHit, 0, len(res[1].Hits)),
		TotalServices: res[0].NbHits,
	}

	for _, raw := range res[0].Hits {
		hit := ServiceHit{Highlights: flattenHighlights(raw[highlightKey]), raw: raw}
		if err := decodeHit(raw, &hit.ServiceDocument); err != nil {
			s.logger.Warn("skipping malformed service hit", logger.Error(err))
			continue
		}
		results.Services = append(results.Services, hit)
	}
	if categoryHits > 0 {
		for _, raw := range res[1].Hits {
			hit := CategoryHit{Highlights: flattenHighlights(raw[highlightKey]), raw: raw}
			if err := decodeHit(raw, &hit.CategoryDocument); err != nil {
				s.logger.Warn("skipping malformed category hit", logger.Error(err))
				continue
			}
			hit.IconName = models.ParseIcon(hit.Icon)
			results.Categories = append(results.Categories, hit)
		}
	}

	results.NoResults = mode == SearchModeResults &&
		len(results.Services) == 0 && len(results.Categories) == 0

	s.logger.Debug("search",
		logger.String("query", q),
		logger.Int("services", len(results.Services)),
		logger.Int("categories", len(results.Categories)),
	)
	return results, nil
}

func decodeHit(raw map[string]interface{}, target interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// flattenHighlights turns a nested _highlightResult object into dotted
// field paths, keeping only fragments whose matchLevel is not "none".
func flattenHighlights(v interface{}) map[string]string {
	out := map[string]string{}
	collectHighlights(v, "", out)
	return out
}

func collectHighlights(v interface{}, prefix string, out map[string]string) {
	node, ok := v.(map[string]interface{})
	if !ok {
		return
	}
	if value, isLeaf := node["value"].(string); isLeaf {
		if level, _ := node["matchLevel"].(string); level != "" && level != "none" {
			out[prefix] = value
		}
		return
	}
	for key, child := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		collectHighlights(child, path, out)
	}
}

func display(highlights map[string]string, raw map[string]interface{}, field string) string {
	if fragment, ok := highlights[field]; ok {
		return fragment
	}
	value, _ := lookupString(raw, field)
	return value
}
