package services

import (
	"fmt"

	"bloom-backend/internal/storage"
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// StorageError is a blob store failure with an operator-facing message.
type StorageError struct {
	Kind    storage.Kind
	Message string
	Err     error
}

func (e *StorageError) Error() string { return e.Message }

func (e *StorageError) Unwrap() error { return e.Err }

func newStorageError(bucket string, err error) *StorageError {
	kind := storage.KindOf(err)
	var msg string
	switch kind {
	case storage.KindNotFound:
		msg = fmt.Sprintf(`Storage bucket "%s" not found. Please create it and make it public before uploading gallery images.`, bucket)
	case storage.KindPermission:
		msg = fmt.Sprintf(`Permission denied writing to storage bucket "%s". Please log in again, and make sure the bucket is public and writable.`, bucket)
	default:
		msg = "Failed to store image: " + err.Error()
	}
	return &StorageError{Kind: kind, Message: msg, Err: err}
}
