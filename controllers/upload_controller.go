package controllers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/urulico/urulico-api/logger"
	"github.com/urulico/urulico-api/services"
	"github.com/urulico/urulico-api/utils"
)

// uploadFileResult is the per-file entry of an upload response
type uploadFileResult struct {
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// UploadImages handles POST /api/v1/uploads - stores listing images before
// submission. Files are independent: when some fail the response is 422 with
// every file's outcome, and the ones that succeeded stay stored.
func UploadImages(c *gin.Context) {
	imageService := services.GetImageService()
	if imageService == nil {
		respondErrorCode(c, http.StatusServiceUnavailable, services.CodeUpload, "Image storage is not configured", nil)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		respondErrorCode(c, http.StatusBadRequest, CodeInvalidRequest, "Expected a multipart form with files", nil)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		respondErrorCode(c, http.StatusBadRequest, CodeInvalidRequest, "No files provided", nil)
		return
	}
	if len(files) > utils.MaxFilesPerUpload {
		respondErrorCode(c, http.StatusBadRequest, services.CodeValidation,
			fmt.Sprintf("At most %d files can be uploaded at once", utils.MaxFilesPerUpload), nil)
		return
	}

	batch := services.UploadImages(c.Request.Context(), imageService, files)

	results := make([]uploadFileResult, len(batch.Results))
	for i, r := range batch.Results {
		results[i] = uploadFileResult{Filename: r.Filename, URL: r.URL}
		if r.Err != nil {
			results[i].Error = r.Err.Reason
		}
	}

	if failed := batch.Failed(); len(failed) > 0 {
		for _, ferr := range failed {
			_ = c.Error(ferr)
			logger.Get().Warn("image upload failed",
				logger.String("filename", ferr.Filename),
				logger.Error(ferr),
			)
		}
		respondErrorCode(c, http.StatusUnprocessableEntity, services.CodeUpload,
			fmt.Sprintf("%d of %d files failed to upload", len(failed), len(files)), results)
		return
	}

	respondSuccess(c, http.StatusCreated, gin.H{
		"urls":  batch.URLs(),
		"files": results,
	})
}

// GetUploadedImage handles GET /api/v1/uploads/:filename - serves locally stored images
func GetUploadedImage(c *gin.Context) {
	filename := c.Param("filename")

	if filename == "" {
		respondErrorCode(c, http.StatusBadRequest, CodeInvalidRequest, "Filename is required", nil)
		return
	}

	// Prevent directory traversal
	if !utils.IsSafeFilename(filename) {
		respondErrorCode(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename", nil)
		return
	}

	contentType := utils.ContentTypeFor(filename)
	if contentType == "" {
		respondErrorCode(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Unsupported image type", nil)
		return
	}

	filePath := filepath.Join(utils.UploadDir, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		respondErrorCode(c, http.StatusNotFound, "FILE_NOT_FOUND", "Image not found", nil)
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(filePath)
}
