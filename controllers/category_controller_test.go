package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urulico/urulico-api/models"
	"github.com/urulico/urulico-api/services"
)

func TestListCategories(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter()

	// An icon outside the known set resolves to "none"
	_, err := services.SeedCategories(t.Context(), db, []models.Category{
		{Name: "Zoología", Slug: "zoologia", Icon: "Giraffe"},
	})
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/api/v1/categories", "")
	require.Equal(t, http.StatusOK, w.Code)

	response := decodeResponse(t, w)
	assert.True(t, response["success"].(bool))

	categories := response["data"].([]interface{})
	require.Len(t, categories, len(services.DefaultCategories)+1)

	first := categories[0].(map[string]interface{})
	assert.Equal(t, "Artes y Entretenimiento", first["name"], "ordered by name")
	assert.Equal(t, "palette", first["iconName"])

	last := categories[len(categories)-1].(map[string]interface{})
	assert.Equal(t, "zoologia", last["slug"])
	assert.Equal(t, "none", last["iconName"])
}

func TestListLocations(t *testing.T) {
	router := setupTestRouter()

	w := doRequest(router, http.MethodGet, "/api/v1/locations", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"UYU", "USD"}, data["monedas"])

	departamentos := data["departamentos"].([]interface{})
	require.Len(t, departamentos, len(models.Departamentos))
	first := departamentos[0].(map[string]interface{})
	assert.Equal(t, "Artigas", first["nombre"])
	assert.Contains(t, first["ciudades"], "Bella Unión")
}
