package artifact_source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/mitchellh/go-homedir"
	"github.com/turbot/trail-inspector/constants"
	"github.com/turbot/trail-inspector/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GcpConnection holds the settings used to build a GCP Storage client
type GcpConnection struct {
	// path to, or contents of, a service account key file
	Credentials  *string
	QuotaProject *string
}

// GcpStorageBucketSource is an [ObjectStore] implementation that reads objects from a GCP Storage bucket
type GcpStorageBucketSource struct {
	client *storage.Client
}

func NewGcpStorageBucketSource(ctx context.Context, connection *GcpConnection) (*GcpStorageBucketSource, error) {
	opts, err := connection.clientOptions()
	if err != nil {
		return nil, fmt.Errorf("failed setting GCP Storage client config: %w", err)
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Storage client: %w", err)
	}

	slog.Info("Initialized GcpStorageBucketSource")
	return &GcpStorageBucketSource{client: client}, nil
}

func (s *GcpStorageBucketSource) Identifier() string {
	return constants.SourceTypeGcpStorageBucket
}

func (s *GcpStorageBucketSource) Close() error {
	return s.client.Close()
}

func (s *GcpStorageBucketSource) CheckAccess(ctx context.Context, bucket string) error {
	if _, err := s.client.Bucket(bucket).Attrs(ctx); err != nil {
		return &BucketAccessError{Bucket: bucket, Err: err}
	}
	return nil
}

// ListObjects implements [ObjectLister]
func (s *GcpStorageBucketSource) ListObjects(ctx context.Context, bucket, prefix string) iter.Seq2[*types.ObjectInfo, error] {
	return func(yield func(*types.ObjectInfo, error) bool) {
		objectIterator := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
		for {
			obj, err := objectIterator.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("failed to list objects in bucket, %w", err))
				return
			}
			info := types.NewObjectInfo(obj.Name, types.WithSize(obj.Size), types.WithLastModified(obj.Updated))
			if !yield(info, nil) {
				return
			}
		}
	}
}

// FetchObject implements [ObjectFetcher]
func (s *GcpStorageBucketSource) FetchObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if types.NewObjectInfo(key).IsDirectory() {
		return nil, NewNotFoundError(key, ErrDirectoryPlaceholder)
	}

	reader, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, NewNotFoundError(key, err)
		}
		return nil, NewTransientIOError(key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewTransientIOError(key, err)
	}
	return data, nil
}

func (c *GcpConnection) clientOptions() ([]option.ClientOption, error) {
	var opts []option.ClientOption

	if c.Credentials != nil {
		credentials, err := pathOrContents(*c.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON([]byte(credentials)))
	}

	quotaProject := os.Getenv("GOOGLE_CLOUD_QUOTA_PROJECT")
	if c.QuotaProject != nil {
		quotaProject = *c.QuotaProject
	}
	if quotaProject != "" {
		opts = append(opts, option.WithQuotaProject(quotaProject))
	}

	return opts, nil
}

// pathOrContents returns the contents of the file if in names one, otherwise in itself
func pathOrContents(in string) (string, error) {
	if len(in) == 0 {
		return "", nil
	}

	filePath, err := homedir.Expand(in)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(filePath); err == nil {
		contents, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		return string(contents), nil
	}
	return in, nil
}
