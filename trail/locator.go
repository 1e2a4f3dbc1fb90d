package trail

import (
	"context"
	"fmt"
	"strings"
)

// Location is where a trail delivers its log objects
type Location struct {
	Bucket    string
	Prefix    string
	TrailName string
}

// Locator resolves the bucket and prefix holding the trail logs
type Locator interface {
	Locate(ctx context.Context) (*Location, error)
}

// DiscoveryError is returned when the trail location cannot be determined. It is fatal.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to find a cloudtrail, %v", e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// StaticLocator returns a fixed, configured location
type StaticLocator struct {
	location Location
}

func NewStaticLocator(bucket, prefix string) *StaticLocator {
	return &StaticLocator{location: Location{Bucket: bucket, Prefix: prefix}}
}

func (l *StaticLocator) Locate(_ context.Context) (*Location, error) {
	if l.location.Bucket == "" {
		return nil, &DiscoveryError{Err: fmt.Errorf("no bucket configured")}
	}
	loc := l.location
	return &loc, nil
}

// keyPrefix converts a trail's S3 key prefix to a listing prefix. CloudTrail writes
// objects under "<prefix>/AWSLogs/", so a non-empty prefix is treated as a directory.
func keyPrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}
