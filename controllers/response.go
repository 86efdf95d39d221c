package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/services"
)

// Error codes that only exist at the HTTP boundary
const (
	CodeCategoryNotFound  = "CATEGORY_NOT_FOUND"
	CodeSearchUnavailable = "SEARCH_UNAVAILABLE"
	CodeInternal          = "INTERNAL_ERROR"
	CodeInvalidRequest    = "INVALID_REQUEST"
)

func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondErrorCode(c *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// respondError maps a service error onto the response envelope. Store and
// unexpected errors are logged in full and reported opaquely.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		storeErr      *services.StoreError
		indexErr      *services.IndexSyncError
		uploadErr     *services.UploadError
	)

	switch {
	case errors.As(err, &validationErr):
		respondErrorCode(c, http.StatusBadRequest, services.CodeValidation, validationErr.Message, validationErr.Fields)

	case errors.As(err, &notFoundErr):
		code := services.CodeNotFound
		message := "Service not found"
		if notFoundErr.Resource == "category" {
			code = CodeCategoryNotFound
			message = "Category not found"
		}
		respondErrorCode(c, http.StatusNotFound, code, message, gin.H{"key": notFoundErr.Key})

	case errors.As(err, &storeErr):
		logger.Get().Error("store error", logger.String("op", storeErr.Op), logger.Error(storeErr.Err))
		respondErrorCode(c, http.StatusInternalServerError, services.CodeDatabase, "Failed to process request", nil)

	case errors.As(err, &indexErr):
		logger.Get().Error("search index error", logger.String("index", indexErr.Index), logger.Error(indexErr.Err))
		respondErrorCode(c, http.StatusBadGateway, CodeSearchUnavailable, "Search is temporarily unavailable", nil)

	case errors.As(err, &uploadErr):
		respondErrorCode(c, http.StatusUnprocessableEntity, services.CodeUpload, uploadErr.Error(), nil)

	default:
		logger.Get().Error("unexpected error", logger.Error(err))
		respondErrorCode(c, http.StatusInternalServerError, CodeInternal, "Something went wrong", nil)
	}
}
