package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxFileSize is 4MB in bytes
	MaxFileSize = 4 * 1024 * 1024
	// MaxFilesPerUpload is the largest batch accepted by one upload request
	MaxFilesPerUpload = 10
)

// AllowedImageTypes maps accepted file extensions to their content type
var AllowedImageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

var (
	// UploadDir is the directory where uploaded files are stored
	// Can be overridden for testing
	UploadDir = "./uploads"
)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile validates the uploaded file format and size
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	if fileHeader.Size == 0 {
		return &FileUploadError{
			Code:    "EMPTY_FILE",
			Message: "File is empty",
		}
	}

	if ContentTypeFor(fileHeader.Filename) == "" {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("Only %s files are allowed", strings.Join(allowedExtensions(), ", ")),
		}
	}

	return nil
}

// ContentTypeFor returns the content type for an allowed image filename, or
// an empty string when the extension is not accepted
func ContentTypeFor(filename string) string {
	return AllowedImageTypes[strings.ToLower(filepath.Ext(filename))]
}

// GenerateImageName returns a collision free name keeping the original
// extension, lowercased
func GenerateImageName(filename string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}

// IsSafeFilename rejects names that could escape the upload directory
func IsSafeFilename(filename string) bool {
	if filename == "" || filename == "." {
		return false
	}
	return !strings.Contains(filename, "..") &&
		!strings.ContainsAny(filename, `/\`)
}

// SaveUploadedFile saves the uploaded file under uploadDir with the given name
func SaveUploadedFile(fileHeader *multipart.FileHeader, uploadDir, filename string) (err error) {
	if !IsSafeFilename(filename) {
		return fmt.Errorf("invalid filename %q", filename)
	}

	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(uploadDir, filename))
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// GetImageURL returns the URL path for accessing a locally stored image
func GetImageURL(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("/api/v1/uploads/%s", filename)
}

func allowedExtensions() []string {
	exts := make([]string, 0, len(AllowedImageTypes))
	for ext := range AllowedImageTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
