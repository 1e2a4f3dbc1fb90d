package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/turbot/trail-inspector/artifact_source"
	"github.com/turbot/trail-inspector/collector"
	"github.com/turbot/trail-inspector/config"
	"github.com/turbot/trail-inspector/constants"
	"github.com/turbot/trail-inspector/rate_limiter"
	"github.com/turbot/trail-inspector/report"
	"github.com/turbot/trail-inspector/trail"
	"golang.org/x/time/rate"
)

// run locates the trail, collects new log objects and writes their records to out.
// Startup failures are returned before anything is fetched or written.
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config, %w", err)
	}

	policy, err := collector.ParseBudgetPolicy(cfg.GetBudgetPolicy())
	if err != nil {
		return err
	}

	limiterDefinition := &rate_limiter.Definition{
		Name:       "fetch",
		FillRate:   rate.Limit(cfg.GetFetchRateLimit()),
		BucketSize: cfg.GetFetchBurst(),
	}
	if validationErrors := limiterDefinition.Validate(); len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, "; "))
	}

	awsConnection := newAwsConnection(cfg)

	locator, err := newLocator(ctx, cfg, awsConnection)
	if err != nil {
		return err
	}
	location, err := locator.Locate(ctx)
	if err != nil {
		return err
	}

	store, err := artifact_source.NewObjectStore(ctx, cfg.GetSource(), artifact_source.StoreOptions{
		Aws: awsConnection,
		Gcp: &artifact_source.GcpConnection{Credentials: cfg.Credentials, QuotaProject: cfg.QuotaProject},
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.CheckAccess(ctx, location.Bucket); err != nil {
		return err
	}

	c := collector.NewCollector(store, store, location.Bucket, location.Prefix,
		collector.WithBudgetPolicy(policy),
		collector.WithRateLimiter(rate_limiter.NewAPILimiter(limiterDefinition)))

	res, err := c.Collect(ctx, cfg.GetLimit())
	if err != nil {
		return err
	}
	if len(res.Failures) > 0 {
		slog.Warn("Some log objects were skipped", "skipped", len(res.Failures), "failures", res.FailureSummary())
	}

	_, err = report.NewReporter().Write(out, c.Cache())
	return err
}

func newAwsConnection(cfg *config.Config) *artifact_source.AwsConnection {
	region := cfg.GetRegion()
	return &artifact_source.AwsConnection{
		Region:                &region,
		Profile:               cfg.Profile,
		AccessKey:             cfg.AccessKey,
		SecretKey:             cfg.SecretKey,
		SessionToken:          cfg.SessionToken,
		MaxErrorRetryAttempts: cfg.MaxErrorRetryAttempts,
		MinErrorRetryDelay:    cfg.MinErrorRetryDelay,
		EndpointUrl:           cfg.EndpointUrl,
		S3ForcePathStyle:      cfg.S3ForcePathStyle,
	}
}

// newLocator uses the configured bucket if there is one, otherwise discovers the trail bucket from CloudTrail
func newLocator(ctx context.Context, cfg *config.Config, awsConnection *artifact_source.AwsConnection) (trail.Locator, error) {
	if cfg.GetBucket() != "" || cfg.GetSource() != constants.SourceTypeAwsS3Bucket {
		return trail.NewStaticLocator(cfg.GetBucket(), cfg.GetPrefix()), nil
	}
	trailName := ""
	if cfg.TrailName != nil {
		trailName = *cfg.TrailName
	}
	return trail.NewCloudTrailLocator(ctx, awsConnection, trailName)
}
