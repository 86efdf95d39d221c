package controllers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/urulico/urulico-api/config"
	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/services"
)

const servicesPath = "/api/v1/services"

// filterKeys are the listing filters a client can clear individually
var filterKeys = []string{"departamento", "ciudad", "moneda", "precioMin", "precioMax"}

// ActiveFilter is an applied filter with the link that removes it
type ActiveFilter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Clear string `json:"clear"`
}

// PageLinks are the neighbouring page URLs; empty when there is none
type PageLinks struct {
	Prev string `json:"prev,omitempty"`
	Next string `json:"next,omitempty"`
}

// ListServices handles GET /api/v1/services - filtered, paginated listings
// of one category
func ListServices(c *gin.Context) {
	values := c.Request.URL.Query()

	filter, err := services.ParseListingFilter(values)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := services.NewListingService(config.GetDB(), logger.Get()).List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"services":   result.Services,
		"pagination": result.Pagination,
		"links":      pageLinks(values, result.Pagination),
		"filters":    activeFilters(values),
	})
}

// RecentServices handles GET /api/v1/services/recent - newest listings
func RecentServices(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	recent, err := services.NewListingService(config.GetDB(), logger.Get()).Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, recent)
}

// GetService handles GET /api/v1/services/:id - one listing with related ones
func GetService(c *gin.Context) {
	detail, err := services.NewListingService(config.GetDB(), logger.Get()).Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, detail)
}

// CreateService handles POST /api/v1/services - the listing submission.
// A listing that was stored but could not be indexed is still a 201, with
// indexed set to false.
func CreateService(c *gin.Context) {
	var input services.CreateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondErrorCode(c, http.StatusBadRequest, services.CodeValidation, "Invalid request data", err.Error())
		return
	}

	db := config.GetDB()
	log := logger.Get()
	indexSync := services.NewSearchSync(db, services.GetSearchIndex(), nil, log)

	result, err := services.NewListingSubmission(db, indexSync, log).Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	data := gin.H{
		"service": result.Service,
		"indexed": result.Indexed,
	}
	if !result.Indexed {
		data["warning"] = "Service created but not yet searchable"
	}
	respondSuccess(c, http.StatusCreated, data)
}

// LegacyCategoryRedirect handles GET /categoria/:slug, the old category page
// route, by redirecting to the listing endpoint with the same filters
func LegacyCategoryRedirect(c *gin.Context) {
	values := c.Request.URL.Query()
	values.Set("categoria", c.Param("slug"))
	c.Redirect(http.StatusFound, servicesPath+"?"+values.Encode())
}

func pageLinks(values url.Values, p services.Pagination) PageLinks {
	var links PageLinks
	if p.HasPrev() {
		links.Prev = servicesPath + "?" + services.PageQuery(values, min(p.Page-1, max(p.TotalPages, 1)))
	}
	if p.HasNext() {
		links.Next = servicesPath + "?" + services.PageQuery(values, p.Page+1)
	}
	return links
}

func activeFilters(values url.Values) []ActiveFilter {
	filters := []ActiveFilter{}
	for _, key := range filterKeys {
		value := values.Get(key)
		if value == "" ||
			(key == "departamento" && value == services.AllDepartamentos) ||
			(key == "ciudad" && value == services.AllCiudades) {
			continue
		}
		filters = append(filters, ActiveFilter{
			Key:   key,
			Value: value,
			Clear: servicesPath + "?" + services.FilterQuery(values, key, ""),
		})
	}
	return filters
}
