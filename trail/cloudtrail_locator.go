package trail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cloudtrailtypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"github.com/turbot/trail-inspector/artifact_source"
)

// CloudTrailClient is the subset of the CloudTrail API used for discovery
type CloudTrailClient interface {
	DescribeTrails(ctx context.Context, params *cloudtrail.DescribeTrailsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.DescribeTrailsOutput, error)
}

// CloudTrailLocator finds the bucket and prefix of a trail using the CloudTrail API.
// If no trail name is given, the first trail returned is used.
type CloudTrailLocator struct {
	client    CloudTrailClient
	trailName string
}

func NewCloudTrailLocator(ctx context.Context, connection *artifact_source.AwsConnection, trailName string) (*CloudTrailLocator, error) {
	cfg, err := connection.GetClientConfiguration(ctx)
	if err != nil {
		return nil, &DiscoveryError{Err: err}
	}
	return NewCloudTrailLocatorWithClient(cloudtrail.NewFromConfig(*cfg), trailName), nil
}

func NewCloudTrailLocatorWithClient(client CloudTrailClient, trailName string) *CloudTrailLocator {
	return &CloudTrailLocator{client: client, trailName: trailName}
}

func (l *CloudTrailLocator) Locate(ctx context.Context) (*Location, error) {
	input := &cloudtrail.DescribeTrailsInput{}
	if l.trailName != "" {
		input.TrailNameList = []string{l.trailName}
	}

	output, err := l.client.DescribeTrails(ctx, input)
	if err != nil {
		return nil, &DiscoveryError{Err: fmt.Errorf("failed to describe trails, %w", err)}
	}

	t, err := l.selectTrail(output.TrailList)
	if err != nil {
		return nil, &DiscoveryError{Err: err}
	}
	if aws.ToString(t.S3BucketName) == "" {
		return nil, &DiscoveryError{Err: fmt.Errorf("trail %s does not deliver to an S3 bucket", aws.ToString(t.Name))}
	}

	location := &Location{
		Bucket:    aws.ToString(t.S3BucketName),
		Prefix:    keyPrefix(aws.ToString(t.S3KeyPrefix)),
		TrailName: aws.ToString(t.Name),
	}
	slog.Info("Found cloudtrail", "trail", location.TrailName, "bucket", location.Bucket, "prefix", location.Prefix)
	return location, nil
}

func (l *CloudTrailLocator) selectTrail(trails []cloudtrailtypes.Trail) (*cloudtrailtypes.Trail, error) {
	if len(trails) == 0 {
		return nil, errors.New("no trails found")
	}
	if l.trailName == "" {
		return &trails[0], nil
	}
	for i := range trails {
		if aws.ToString(trails[i].Name) == l.trailName || aws.ToString(trails[i].TrailARN) == l.trailName {
			return &trails[i], nil
		}
	}
	return nil, fmt.Errorf("trail %s not found", l.trailName)
}
