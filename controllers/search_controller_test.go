package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/services"
)

func setupSearchIndex(t *testing.T) *services.MockSearchIndex {
	t.Helper()
	db := setupTestDB(t)

	createListing(t, db, "tecnologia-informatica", "Reparación de notebooks", listingOpts{departamento: "Montevideo"})
	createListing(t, db, "construccion-carpinteria", "Carpintería a medida", listingOpts{departamento: "Canelones"})

	index := services.NewMockSearchIndex()
	index.SetAsMockForTesting()
	t.Cleanup(func() { services.SetSearchIndex(nil) })

	_, err := services.NewSearchSync(db, index, nil, logger.NewNop()).Reindex(context.Background())
	require.NoError(t, err)
	return index
}

func TestSearch(t *testing.T) {
	setupSearchIndex(t)
	router := setupTestRouter()

	tests := []struct {
		name          string
		query         string
		checkResponse func(t *testing.T, data map[string]interface{})
	}{
		{
			name:  "blank query returns recent listings only",
			query: "",
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, "recent", data["mode"])
				assert.Len(t, data["services"].([]interface{}), 2)
				assert.Empty(t, data["categories"].([]interface{}))
				assert.Equal(t, false, data["noResults"])
			},
		},
		{
			name:  "query matches listings and categories with highlights",
			query: "carpinter",
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, "results", data["mode"])

				hits := data["services"].([]interface{})
				require.Len(t, hits, 1)
				hit := hits[0].(map[string]interface{})
				assert.Equal(t, "Carpintería a medida", hit["titulo"])
				highlights := hit["highlights"].(map[string]interface{})
				assert.Equal(t, "<em>Carpinter</em>ía a medida", highlights["titulo"])
				assert.Equal(t, "Construcción y <em>Carpinter</em>ía", highlights["category.name"])

				categories := data["categories"].([]interface{})
				require.Len(t, categories, 1)
				assert.Equal(t, "hammer", categories[0].(map[string]interface{})["iconName"])
			},
		},
		{
			name:  "no matches is a distinct state",
			query: "astronauta",
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				assert.Empty(t, data["services"].([]interface{}))
				assert.Empty(t, data["categories"].([]interface{}))
				assert.Equal(t, true, data["noResults"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, "/api/v1/search?q="+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			tt.checkResponse(t, decodeResponse(t, w)["data"].(map[string]interface{}))
		})
	}
}

func TestSearch_IndexUnavailable(t *testing.T) {
	index := setupSearchIndex(t)
	index.FailWith(errors.New("connection refused"))
	router := setupTestRouter()

	w := doRequest(router, http.MethodGet, "/api/v1/search?q=notebook", "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	errBody := decodeResponse(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "SEARCH_UNAVAILABLE", errBody["code"])
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestSearch_NotConfigured(t *testing.T) {
	services.SetSearchIndex(nil)
	router := setupTestRouter()

	w := doRequest(router, http.MethodGet, "/api/v1/search?q=x", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
