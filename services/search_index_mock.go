package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// searchableAttributes lists, per index, the attributes queries match
// against and that receive highlight fragments.
var searchableAttributes = map[string][]string{
	ServicesIndex:   {"titulo", "descripcion", "proveedor", "departamento", "ciudad", "category.name"},
	CategoriesIndex: {"name"},
}

// MockSearchIndex is an in-memory SearchIndex. It is used by tests and as
// the development backend when no hosted index is configured. Matching is
// case-insensitive substring per query word; every word must match some
// searchable attribute. Hits come back newest-saved first.
type MockSearchIndex struct {
	mu      sync.RWMutex
	indexes map[string][]map[string]interface{}
	failErr error
	queries []SearchQuery
}

// NewMockSearchIndex creates an empty in-memory index
func NewMockSearchIndex() *MockSearchIndex {
	return &MockSearchIndex{
		indexes: make(map[string][]map[string]interface{}),
	}
}

// SetAsMockForTesting sets this mock as the global search index instance
func (m *MockSearchIndex) SetAsMockForTesting() {
	SetSearchIndex(m)
}

// FailWith makes every following call return err; nil restores normal behavior
func (m *MockSearchIndex) FailWith(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

// SaveObject adds or replaces a document by objectID
func (m *MockSearchIndex) SaveObject(ctx context.Context, indexName string, object interface{}) error {
	doc, err := toDocument(object)
	if err != nil {
		return err
	}
	id, _ := doc["objectID"].(string)
	if id == "" {
		return fmt.Errorf("missing objectID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}

	docs := m.indexes[indexName]
	kept := docs[:0:0]
	for _, d := range docs {
		if d["objectID"] != id {
			kept = append(kept, d)
		}
	}
	m.indexes[indexName] = append(kept, doc)
	return nil
}

// ReplaceAllObjects swaps the index contents
func (m *MockSearchIndex) ReplaceAllObjects(ctx context.Context, indexName string, objects []interface{}) error {
	docs := make([]map[string]interface{}, 0, len(objects))
	for _, object := range objects {
		doc, err := toDocument(object)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.indexes[indexName] = docs
	return nil
}

// MultipleQueries runs every query against the in-memory documents
func (m *MockSearchIndex) MultipleQueries(ctx context.Context, queries []SearchQuery) ([]SearchHits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	m.queries = append(m.queries, queries...)

	results := make([]SearchHits, len(queries))
	for i, q := range queries {
		attributes := searchableAttributes[q.IndexName]
		terms := strings.Fields(q.Query)
		docs := m.indexes[q.IndexName]

		result := SearchHits{IndexName: q.IndexName, Hits: []map[string]interface{}{}}
		for j := len(docs) - 1; j >= 0; j-- {
			doc := docs[j]
			if !matchesAll(doc, attributes, terms) {
				continue
			}
			result.NbHits++
			if len(result.Hits) < q.HitsPerPage {
				result.Hits = append(result.Hits, withHighlights(doc, attributes, terms))
			}
		}
		results[i] = result
	}
	return results, nil
}

// Documents returns a copy of the documents stored in an index
func (m *MockSearchIndex) Documents(indexName string) []map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]map[string]interface{}, len(m.indexes[indexName]))
	copy(docs, m.indexes[indexName])
	return docs
}

// Queries returns every sub-query received so far
func (m *MockSearchIndex) Queries() []SearchQuery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	queries := make([]SearchQuery, len(m.queries))
	copy(queries, m.queries)
	return queries
}

// Clear removes all documents and recorded queries
func (m *MockSearchIndex) Clear() {
	m.mu.Lock()
	m.indexes = make(map[string][]map[string]interface{})
	m.queries = nil
	m.failErr = nil
	m.mu.Unlock()
}

func toDocument(object interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(object)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("document is not an object: %w", err)
	}
	return doc, nil
}

func matchesAll(doc map[string]interface{}, attributes, terms []string) bool {
	for _, term := range terms {
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
		found := false
		for _, attr := range attributes {
			if value, ok := lookupString(doc, attr); ok && re.MatchString(value) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func withHighlights(doc map[string]interface{}, attributes, terms []string) map[string]interface{} {
	hit := make(map[string]interface{}, len(doc)+1)
	for k, v := range doc {
		hit[k] = v
	}

	var re *regexp.Regexp
	if len(terms) > 0 {
		quoted := make([]string, len(terms))
		for i, term := range terms {
			quoted[i] = regexp.QuoteMeta(term)
		}
		re = regexp.MustCompile("(?i)(" + strings.Join(quoted, "|") + ")")
	}

	highlights := map[string]interface{}{}
	for _, attr := range attributes {
		value, ok := lookupString(doc, attr)
		if !ok {
			continue
		}
		fragment := map[string]interface{}{"value": value, "matchLevel": "none"}
		if re != nil && re.MatchString(value) {
			fragment["value"] = re.ReplaceAllString(value, "<em>$1</em>")
			fragment["matchLevel"] = "full"
		}
		setPath(highlights, attr, fragment)
	}
	hit["_highlightResult"] = highlights
	return hit
}

func lookupString(doc map[string]interface{}, path string) (string, bool) {
	var current interface{} = doc
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		current = m[key]
	}
	s, ok := current.(string)
	return s, ok
}

func setPath(target map[string]interface{}, path string, value interface{}) {
	keys := strings.Split(path, ".")
	for _, key := range keys[:len(keys)-1] {
		next, ok := target[key].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			target[key] = next
		}
		target = next
	}
	target[keys[len(keys)-1]] = value
}
