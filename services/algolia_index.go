package services

import (
	"context"
	"fmt"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
)

// AlgoliaIndex implements SearchIndex on a hosted Algolia application
type AlgoliaIndex struct {
	client *search.Client
}

// NewAlgoliaIndex creates an Algolia backed search index
func NewAlgoliaIndex(appID, apiKey string) *AlgoliaIndex {
	return &AlgoliaIndex{client: search.NewClient(appID, apiKey)}
}

// SaveObject adds or replaces one document
func (a *AlgoliaIndex) SaveObject(ctx context.Context, indexName string, object interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := a.client.InitIndex(indexName).SaveObject(object, ctx); err != nil {
		return fmt.Errorf("algolia save object: %w", err)
	}
	return nil
}

// ReplaceAllObjects swaps the index contents through a temporary index and
// waits for the swap to finish.
func (a *AlgoliaIndex) ReplaceAllObjects(ctx context.Context, indexName string, objects []interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := a.client.InitIndex(indexName).ReplaceAllObjects(objects, opt.Safe(true), ctx); err != nil {
		return fmt.Errorf("algolia replace all objects: %w", err)
	}
	return nil
}

// MultipleQueries runs the queries in one request and returns their hits in
// request order
func (a *AlgoliaIndex) MultipleQueries(ctx context.Context, queries []SearchQuery) ([]SearchHits, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	indexed := make([]search.IndexedQuery, len(queries))
	for i, q := range queries {
		indexed[i] = search.NewIndexedQuery(q.IndexName,
			opt.Query(q.Query),
			opt.HitsPerPage(q.HitsPerPage),
		)
	}

	res, err := a.client.MultipleQueries(indexed, "none", ctx)
	if err != nil {
		return nil, fmt.Errorf("algolia multiple queries: %w", err)
	}
	if len(res.Results) != len(queries) {
		return nil, fmt.Errorf("algolia returned %d results for %d queries", len(res.Results), len(queries))
	}

	hits := make([]SearchHits, len(res.Results))
	for i, r := range res.Results {
		hits[i] = SearchHits{
			IndexName: queries[i].IndexName,
			Hits:      r.Hits,
			NbHits:    r.NbHits,
		}
	}
	return hits, nil
}
