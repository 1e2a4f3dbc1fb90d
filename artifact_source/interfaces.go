package artifact_source

import (
	"context"
	"iter"

	"github.com/turbot/trail-inspector/types"
)

// ObjectLister enumerates the objects under a bucket prefix.
// Each call re-lists the current contents of the bucket. The returned sequence yields
// a non-nil error at most once, as its final element, if the listing could not be completed.
type ObjectLister interface {
	ListObjects(ctx context.Context, bucket, prefix string) iter.Seq2[*types.ObjectInfo, error]
}

// ObjectFetcher retrieves the raw bytes of a single object.
// Failures are returned as a *NotFoundError or a *TransientIOError.
type ObjectFetcher interface {
	FetchObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// ObjectStore is a bucket-backed source of log objects
type ObjectStore interface {
	ObjectLister
	ObjectFetcher

	Identifier() string
	// CheckAccess verifies the bucket exists and is readable, returning a *BucketAccessError if not
	CheckAccess(ctx context.Context, bucket string) error
	Close() error
}
