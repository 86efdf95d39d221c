package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/services"
)

// Search handles GET /api/v1/search?q= - full-text search over listings and
// categories. Without q it returns the recent view.
func Search(c *gin.Context) {
	index := services.GetSearchIndex()
	if index == nil {
		respondErrorCode(c, http.StatusBadGateway, CodeSearchUnavailable, "Search is temporarily unavailable", nil)
		return
	}

	results, err := services.NewSearchService(index, logger.Get()).Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, results)
}
