package types

import (
	"strings"
	"time"
)

// ObjectInfo identifies a single object in a bucket, as returned by an object listing.
// Key is the unique reference to the object; Size and LastModified are best effort.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

func NewObjectInfo(key string, opts ...ObjectInfoOpts) *ObjectInfo {
	res := &ObjectInfo{Key: key}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// IsDirectory returns true if the key is a directory placeholder rather than a real object
func (i *ObjectInfo) IsDirectory() bool {
	return strings.HasSuffix(i.Key, "/")
}

type ObjectInfoOpts func(*ObjectInfo)

func WithSize(size int64) ObjectInfoOpts {
	return func(i *ObjectInfo) {
		i.Size = size
	}
}

func WithLastModified(t time.Time) ObjectInfoOpts {
	return func(i *ObjectInfo) {
		i.LastModified = t
	}
}
