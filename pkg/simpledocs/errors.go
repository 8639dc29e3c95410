package simpledocs

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Error types
var (
	// ErrSizeExceeded indicates a file is larger than the configured limit
	ErrSizeExceeded = errors.New("file size exceeds limit")

	// ErrInvalidType indicates a file extension or MIME type is not allowed
	ErrInvalidType = errors.New("file type not allowed")

	// ErrMetadataWrite indicates the document metadata could not be rewritten
	ErrMetadataWrite = errors.New("metadata write failed")

	// ErrInvalidKey indicates a key outside the known category prefixes
	ErrInvalidKey = errors.New("invalid key")

	// ErrStore indicates the object store rejected an operation
	ErrStore = errors.New("object store operation failed")

	// ErrUnknownCategory indicates an upload for a category the gateway does not handle
	ErrUnknownCategory = errors.New("unknown category")

	// ErrBucketRequired indicates a gateway built without a bucket name
	ErrBucketRequired = errors.New("bucket name is required")
)

// ValidationError reports an upload rejected before any side effect
type ValidationError struct {
	Name   string
	Reason error
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %v: %s", e.Name, e.Reason, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// MetadataWriteError reports a failed PDF metadata rewrite; nothing was written to the store
type MetadataWriteError struct {
	Op  string
	Err error
}

func (e *MetadataWriteError) Error() string {
	return fmt.Sprintf("metadata %s failed: %v", e.Op, e.Err)
}

func (e *MetadataWriteError) Unwrap() error {
	return e.Err
}

func (e *MetadataWriteError) Is(target error) bool {
	return target == ErrMetadataWrite
}

// InvalidKeyError reports a key refused by the prefix guard; no backend call was issued
type InvalidKeyError struct {
	Key string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key %q: must start with a known category prefix", e.Key)
}

func (e *InvalidKeyError) Is(target error) bool {
	return target == ErrInvalidKey
}

// StoreError represents a backend call that was made and failed
type StoreError struct {
	Op      string
	Key     string
	Code    string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("storage operation %s failed for key %s: %s: %s", e.Op, e.Key, e.Code, e.Message)
	}
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func newStoreError(op, key string, err error) *StoreError {
	se := &StoreError{Op: op, Key: key, Message: err.Error(), Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		se.Code = apiErr.ErrorCode()
		se.Message = apiErr.ErrorMessage()
	}
	return se
}

// IsNotFound reports whether err is a StoreError for a missing object
func IsNotFound(err error) bool {
	var se *StoreError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case "NotFound", "NoSuchKey":
		return true
	}
	return false
}
