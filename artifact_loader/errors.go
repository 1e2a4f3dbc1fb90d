package artifact_loader

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRecords = errors.New("document has no Records key")
	ErrNotAnObject    = errors.New("document is not a JSON object")
)

// DecompressError is returned when the raw object bytes are not valid gzip data
type DecompressError struct {
	Key string
	Err error
}

func (e *DecompressError) Error() string {
	return fmt.Sprintf("failed to decompress %s, %v", e.Key, e.Err)
}

func (e *DecompressError) Unwrap() error {
	return e.Err
}

// ParseError is returned when decompressed data is not a CloudTrail log document
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s, %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
