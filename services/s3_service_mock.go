package services

import (
	"context"
	"fmt"
	"sync"
)

// MockS3Service is a mock implementation of S3Service for testing
type MockS3Service struct {
	uploadedFiles map[string][]byte // map of S3 key to file content
	contentTypes  map[string]string
	failAfter     int
	puts          int
	mu            sync.RWMutex
}

// NewMockS3Service creates a new mock S3 service
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{
		uploadedFiles: make(map[string][]byte),
		contentTypes:  make(map[string]string),
		failAfter:     -1,
	}
}

// FailAfter makes every upload after the first n fail; a negative n disables failures
func (m *MockS3Service) FailAfter(n int) {
	m.mu.Lock()
	m.failAfter = n
	m.mu.Unlock()
}

// PutObject simulates uploading a file to S3
func (m *MockS3Service) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.puts++
	if m.failAfter >= 0 && m.puts > m.failAfter {
		return fmt.Errorf("mock S3 rejected %s", key)
	}

	content := make([]byte, len(body))
	copy(content, body)
	m.uploadedFiles[key] = content
	m.contentTypes[key] = contentType
	return nil
}

// PublicURL returns a fake bucket URL
func (m *MockS3Service) PublicURL(key string) string {
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s", key)
}

// GetUploadedFiles returns all uploaded files (for testing assertions)
func (m *MockS3Service) GetUploadedFiles() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make(map[string][]byte, len(m.uploadedFiles))
	for k, v := range m.uploadedFiles {
		files[k] = v
	}
	return files
}

// ContentType returns the content type an object was stored with
func (m *MockS3Service) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contentTypes[key]
}

// FileExists checks if a file exists in mock storage
func (m *MockS3Service) FileExists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.uploadedFiles[key]
	return exists
}

// Clear removes all files from mock storage
func (m *MockS3Service) Clear() {
	m.mu.Lock()
	m.uploadedFiles = make(map[string][]byte)
	m.contentTypes = make(map[string]string)
	m.failAfter = -1
	m.puts = 0
	m.mu.Unlock()
}
