package artifact_source

import (
	"context"
	"fmt"

	"github.com/turbot/trail-inspector/constants"
)

// StoreOptions holds the connection settings for every supported source type;
// only the connection for the selected source is used
type StoreOptions struct {
	Aws *AwsConnection
	Gcp *GcpConnection
}

// NewObjectStore returns the [ObjectStore] for the given source type
func NewObjectStore(ctx context.Context, sourceType string, opts StoreOptions) (ObjectStore, error) {
	switch sourceType {
	case constants.SourceTypeAwsS3Bucket:
		connection := opts.Aws
		if connection == nil {
			connection = &AwsConnection{}
		}
		source, err := NewAwsS3BucketSource(ctx, connection)
		if err != nil {
			return nil, err
		}
		return source, nil
	case constants.SourceTypeGcpStorageBucket:
		connection := opts.Gcp
		if connection == nil {
			connection = &GcpConnection{}
		}
		source, err := NewGcpStorageBucketSource(ctx, connection)
		if err != nil {
			return nil, err
		}
		return source, nil
	case constants.SourceTypeFileSystem:
		return NewFileSystemSource(), nil
	default:
		return nil, fmt.Errorf("unsupported source type %q", sourceType)
	}
}
