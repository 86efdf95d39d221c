package services

import (
	"fmt"
	"strings"
)

// Error codes shared by the services and the HTTP envelope
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeDatabase   = "DATABASE_ERROR"
	CodeIndexSync  = "INDEX_SYNC_ERROR"
	CodeUpload     = "UPLOAD_ERROR"
)

// FieldError describes one invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned for malformed or missing input, always before
// any side effect has happened.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

func (e *ValidationError) Code() string { return CodeValidation }

// NotFoundError reports a referenced record that does not exist. A filter
// that matches nothing is not a NotFoundError.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

func (e *NotFoundError) Code() string { return CodeNotFound }

// StoreError wraps a database failure. The wrapped error is for logs only.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Code() string { return CodeDatabase }

// IndexSyncError wraps a search index read or write failure
type IndexSyncError struct {
	Index string
	Op    string
	Err   error
}

func (e *IndexSyncError) Error() string {
	return fmt.Sprintf("search index %s: %s: %v", e.Index, e.Op, e.Err)
}

func (e *IndexSyncError) Unwrap() error { return e.Err }

func (e *IndexSyncError) Code() string { return CodeIndexSync }

// UploadError reports a failed image upload for a single file
type UploadError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload %s: %s: %v", e.Filename, e.Reason, e.Err)
	}
	return fmt.Sprintf("upload %s: %s", e.Filename, e.Reason)
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Code() string { return CodeUpload }

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Message: "Invalid request data",
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}
