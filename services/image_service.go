package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/urulico/urulico-api/utils"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentUploads bounds the uploads of one batch in flight at once
const maxConcurrentUploads = 4

// ImageService stores listing images and returns the public URL of each
type ImageService interface {
	// UploadImage validates and stores an image file, returns its public URL
	UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error)
}

// S3ImageService implements ImageService using AWS S3 for storage
type S3ImageService struct {
	s3Service S3Interface
}

// LocalImageService implements ImageService on a local directory served by
// the API itself
type LocalImageService struct {
	dir     string
	baseURL string
}

var imageServiceInstance ImageService

// InitImageService initializes the image service with S3 backend
func InitImageService(s3Service S3Interface) ImageService {
	imageServiceInstance = &S3ImageService{
		s3Service: s3Service,
	}
	return imageServiceInstance
}

// NewLocalImageService stores images in dir; URLs are rooted at baseURL
func NewLocalImageService(dir, baseURL string) *LocalImageService {
	return &LocalImageService{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// UploadImage validates and uploads an image file to S3 under services/
func (s *S3ImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	key := "services/" + utils.GenerateImageName(fileHeader.Filename)
	if err := s.s3Service.PutObject(ctx, key, content, utils.ContentTypeFor(fileHeader.Filename)); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return s.s3Service.PublicURL(key), nil
}

// UploadImage validates and writes an image file to the local directory
func (s *LocalImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := utils.GenerateImageName(fileHeader.Filename)
	if err := utils.SaveUploadedFile(fileHeader, s.dir, name); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	return s.baseURL + utils.GetImageURL(name), nil
}

// UploadResult is the outcome for one file of a batch
type UploadResult struct {
	Filename string       `json:"filename"`
	URL      string       `json:"url,omitempty"`
	Err      *UploadError `json:"-"`
}

// UploadBatch holds per-file results in request order
type UploadBatch struct {
	Results []UploadResult
}

// URLs returns the public URLs of the successful uploads, in request order
func (b *UploadBatch) URLs() []string {
	urls := make([]string, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Err == nil {
			urls = append(urls, r.URL)
		}
	}
	return urls
}

// Failed returns the failed uploads
func (b *UploadBatch) Failed() []*UploadError {
	var failed []*UploadError
	for _, r := range b.Results {
		if r.Err != nil {
			failed = append(failed, r.Err)
		}
	}
	return failed
}

// UploadImages uploads every file with bounded concurrency. A failed file
// never affects the others; each result records its own outcome.
func UploadImages(ctx context.Context, svc ImageService, files []*multipart.FileHeader) *UploadBatch {
	batch := &UploadBatch{Results: make([]UploadResult, len(files))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)
	for i, fh := range files {
		g.Go(func() error {
			result := UploadResult{Filename: fh.Filename}
			url, err := svc.UploadImage(gctx, fh)
			if err != nil {
				result.Err = &UploadError{Filename: fh.Filename, Reason: uploadReason(err), Err: err}
			} else {
				result.URL = url
			}
			batch.Results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	return batch
}

func uploadReason(err error) string {
	if fe, ok := err.(*utils.FileUploadError); ok {
		return fe.Message
	}
	return "upload failed"
}
