package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/turbot/trail-inspector/artifact_loader"
	"github.com/turbot/trail-inspector/artifact_source"
	"github.com/turbot/trail-inspector/collection_state"
	"github.com/turbot/trail-inspector/rate_limiter"
	"github.com/turbot/trail-inspector/types"
)

var ErrNegativeLimit = errors.New("limit must not be negative")

// Loader converts the raw bytes of an object into a log document
type Loader interface {
	Load(key string, raw []byte) (*types.LogDocument, error)
}

// Collector fetches new log objects from a bucket into its own LogCache.
// Each call to Collect re-lists the bucket and fetches objects which are not yet cached,
// up to a limit. Objects which fail to fetch or parse are skipped and stay uncached.
// A Collector is not safe for concurrent use.
type Collector struct {
	lister  artifact_source.ObjectLister
	fetcher artifact_source.ObjectFetcher
	bucket  string
	prefix  string

	loader       Loader
	cache        *collection_state.LogCache
	limiter      *rate_limiter.APILimiter
	budgetPolicy BudgetPolicy
}

type CollectorOption func(*Collector)

func WithBudgetPolicy(policy BudgetPolicy) CollectorOption {
	return func(c *Collector) {
		c.budgetPolicy = policy
	}
}

// WithRateLimiter paces object fetches
func WithRateLimiter(limiter *rate_limiter.APILimiter) CollectorOption {
	return func(c *Collector) {
		c.limiter = limiter
	}
}

func WithLoader(loader Loader) CollectorOption {
	return func(c *Collector) {
		c.loader = loader
	}
}

func NewCollector(lister artifact_source.ObjectLister, fetcher artifact_source.ObjectFetcher, bucket, prefix string, opts ...CollectorOption) *Collector {
	c := &Collector{
		lister:       lister,
		fetcher:      fetcher,
		bucket:       bucket,
		prefix:       prefix,
		loader:       artifact_loader.NewCloudTrailLoader(),
		cache:        collection_state.NewLogCache(),
		limiter:      rate_limiter.Unlimited("fetch"),
		budgetPolicy: BudgetConsumeOnFailure,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache returns the collector's cache. Callers must not insert into it.
func (c *Collector) Cache() *collection_state.LogCache {
	return c.cache
}

// Collect runs a single pass: the bucket is listed afresh and, in listing order, each object
// not already cached is fetched, parsed and cached until limit objects have been used up.
// How failed objects count against the limit is set by the collector's BudgetPolicy.
// The pass stops as soon as the limit is used up, without visiting the rest of the listing.
//
// Per-object failures and listing failures are logged and recorded in the result; they are
// not returned as errors. An error is only returned for a negative limit, a cancelled context or
// a fetch rate limiter which cannot permit another fetch before the context deadline.
func (c *Collector) Collect(ctx context.Context, limit int) (*Result, error) {
	if limit < 0 {
		return nil, ErrNegativeLimit
	}

	res := &Result{ExecutionId: uuid.NewString()}
	slog.Info("Collecting log objects", "execution_id", res.ExecutionId, "bucket", c.bucket, "prefix", c.prefix,
		"limit", limit, "budget_policy", c.budgetPolicy.String(), "cached", c.cache.Len())

	remaining := limit
	if remaining == 0 {
		slog.Info("Nothing to collect, limit is zero", "execution_id", res.ExecutionId)
		return res, nil
	}

	for info, err := range c.lister.ListObjects(ctx, c.bucket, c.prefix) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			slog.Warn("Failed to list log objects, ending collection", "execution_id", res.ExecutionId, "error", err)
			res.ListError = err
			break
		}
		res.Listed++

		if c.cache.Contains(info.Key) {
			res.CacheHits++
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		// a limiter error means no fetch can be made before the deadline, so the pass ends here
		if err := c.limiter.Wait(ctx); err != nil {
			slog.Warn("Fetch rate limit wait failed, ending collection", "execution_id", res.ExecutionId, "error", err)
			return res, fmt.Errorf("waiting for fetch rate limiter, %w", err)
		}

		res.Attempted++
		if err := c.collectObject(ctx, info); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			failure := ItemFailure{Key: info.Key, Kind: ClassifyFailure(err), Err: err}
			res.Failures = append(res.Failures, failure)
			slog.Warn("Failed to collect log object, skipping", "execution_id", res.ExecutionId,
				"key", info.Key, "kind", failure.Kind, "error", err)

			if c.budgetPolicy == BudgetConsumeOnFailure {
				remaining--
			}
		} else {
			res.Collected++
			remaining--
		}

		// stop as soon as the budget is used up, later entries are not visited
		if remaining == 0 {
			break
		}
	}

	slog.Info("Collection complete", "execution_id", res.ExecutionId, "listed", res.Listed,
		"cache_hits", res.CacheHits, "attempted", res.Attempted, "collected", res.Collected,
		"failures", res.FailureSummary())
	return res, nil
}

func (c *Collector) collectObject(ctx context.Context, info *types.ObjectInfo) error {
	raw, err := c.fetcher.FetchObject(ctx, c.bucket, info.Key)
	if err != nil {
		return err
	}

	doc, err := c.loader.Load(info.Key, raw)
	if err != nil {
		return err
	}

	slog.Debug("Collected log object", "key", info.Key, "records", len(doc.Records))
	return c.cache.Insert(doc)
}
