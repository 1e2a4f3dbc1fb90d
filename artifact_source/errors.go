package artifact_source

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when an object does not exist or cannot be read as an object,
// for example a directory placeholder key
type NotFoundError struct {
	Key string
	Err error
}

func NewNotFoundError(key string, err error) *NotFoundError {
	return &NotFoundError{Key: key, Err: err}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object %s not found, %v", e.Key, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// TransientIOError is returned when an object exists but could not be read,
// for example due to a network failure
type TransientIOError struct {
	Key string
	Err error
}

func NewTransientIOError(key string, err error) *TransientIOError {
	return &TransientIOError{Key: key, Err: err}
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("failed to read object %s, %v", e.Key, e.Err)
}

func (e *TransientIOError) Unwrap() error {
	return e.Err
}

// BucketAccessError is returned when a bucket cannot be accessed at all. It is fatal.
type BucketAccessError struct {
	Bucket string
	Err    error
}

func (e *BucketAccessError) Error() string {
	return fmt.Sprintf("could not access bucket %s, %v", e.Bucket, e.Err)
}

func (e *BucketAccessError) Unwrap() error {
	return e.Err
}

// ErrDirectoryPlaceholder is the cause of a NotFoundError for keys which name a directory rather than an object
var ErrDirectoryPlaceholder = errors.New("key is a directory placeholder")
