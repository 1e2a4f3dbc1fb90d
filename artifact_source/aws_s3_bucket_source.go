package artifact_source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/turbot/trail-inspector/constants"
	"github.com/turbot/trail-inspector/types"
)

// S3Client is the subset of the S3 API used by AwsS3BucketSource
type S3Client interface {
	s3.ListObjectsV2APIClient
	s3.HeadBucketAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// AwsS3BucketSource is an [ObjectStore] implementation that reads objects from an S3 bucket
type AwsS3BucketSource struct {
	client S3Client
}

// NewAwsS3BucketSource creates an S3 client from the connection and returns a source which uses it
func NewAwsS3BucketSource(ctx context.Context, connection *AwsConnection) (*AwsS3BucketSource, error) {
	slog.Info("Initializing AwsS3BucketSource")

	cfg, err := connection.GetClientConfiguration(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %w", err)
	}

	client := s3.NewFromConfig(*cfg, func(o *s3.Options) {
		o.UsePathStyle = aws.ToBool(connection.S3ForcePathStyle)
	})

	slog.Info("Initialized AwsS3BucketSource", "region", cfg.Region)
	return NewAwsS3BucketSourceWithClient(client), nil
}

func NewAwsS3BucketSourceWithClient(client S3Client) *AwsS3BucketSource {
	return &AwsS3BucketSource{client: client}
}

func (s *AwsS3BucketSource) Identifier() string {
	return constants.SourceTypeAwsS3Bucket
}

func (s *AwsS3BucketSource) Close() error {
	return nil
}

func (s *AwsS3BucketSource) CheckAccess(ctx context.Context, bucket string) error {
	if bucket == "" {
		return &BucketAccessError{Bucket: bucket, Err: errors.New("bucket is required")}
	}
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return &BucketAccessError{Bucket: bucket, Err: err}
	}
	return nil
}

// ListObjects implements [ObjectLister]
// pages of the ListObjectsV2 response are flattened into a single sequence
func (s *AwsS3BucketSource) ListObjects(ctx context.Context, bucket, prefix string) iter.Seq2[*types.ObjectInfo, error] {
	return func(yield func(*types.ObjectInfo, error) bool) {
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
			Prefix: aws.String(prefix),
		})

		for paginator.HasMorePages() {
			output, err := paginator.NextPage(ctx)
			if err != nil {
				yield(nil, fmt.Errorf("failed to get page of S3 objects, %w", err))
				return
			}
			for _, object := range output.Contents {
				info := types.NewObjectInfo(aws.ToString(object.Key),
					types.WithSize(aws.ToInt64(object.Size)),
					types.WithLastModified(aws.ToTime(object.LastModified)))
				if !yield(info, nil) {
					return
				}
			}
		}
	}
}

// FetchObject implements [ObjectFetcher]
func (s *AwsS3BucketSource) FetchObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if types.NewObjectInfo(key).IsDirectory() {
		return nil, NewNotFoundError(key, ErrDirectoryPlaceholder)
	}

	getObjectOutput, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyS3Error(key, err)
	}
	defer getObjectOutput.Body.Close()

	data, err := io.ReadAll(getObjectOutput.Body)
	if err != nil {
		return nil, NewTransientIOError(key, err)
	}
	return data, nil
}

func classifyS3Error(key string, err error) error {
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return NewNotFoundError(key, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "AccessDenied", "InvalidObjectState":
			return NewNotFoundError(key, err)
		}
	}
	return NewTransientIOError(key, err)
}
