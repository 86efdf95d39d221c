package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urulico/urulico-api/config"
	"github.com/urulico/urulico-api/models"
	"github.com/urulico/urulico-api/services"
)

// ListCategories handles GET /api/v1/categories - the category catalogue
func ListCategories(c *gin.Context) {
	categories, err := services.ListCategories(c.Request.Context(), config.GetDB())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, categories)
}

// Departamento is one department with its cities
type Departamento struct {
	Nombre   string   `json:"nombre"`
	Ciudades []string `json:"ciudades"`
}

// ListLocations handles GET /api/v1/locations - departments, cities and currencies
func ListLocations(c *gin.Context) {
	departamentos := make([]Departamento, len(models.Departamentos))
	for i, name := range models.Departamentos {
		departamentos[i] = Departamento{Nombre: name, Ciudades: models.Ciudades[name]}
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"departamentos": departamentos,
		"monedas":       models.Currencies,
	})
}
