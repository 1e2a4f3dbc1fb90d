package artifact_source

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/rs/dnscache"
	typehelpers "github.com/turbot/go-kit/types"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxErrorRetryAttempts = 9
	defaultMinErrorRetryDelay    = 25 * time.Millisecond
)

// AwsConnection holds the settings used to build an AWS SDK configuration,
// shared by the S3 source and CloudTrail trail discovery
type AwsConnection struct {
	Region                *string
	Profile               *string
	AccessKey             *string
	SecretKey             *string
	SessionToken          *string
	MaxErrorRetryAttempts *int
	// milliseconds
	MinErrorRetryDelay *int
	EndpointUrl        *string
	S3ForcePathStyle   *bool
}

func (c *AwsConnection) Validate() error {
	if c.AccessKey != nil && c.SecretKey == nil {
		return fmt.Errorf("access_key set without secret_key")
	}
	if c.AccessKey == nil && c.SecretKey != nil {
		return fmt.Errorf("secret_key set without access_key")
	}
	if c.MinErrorRetryDelay != nil && *c.MinErrorRetryDelay < 1 {
		return fmt.Errorf("min_error_retry_delay must be greater than or equal to 1")
	}
	if c.MaxErrorRetryAttempts != nil && *c.MaxErrorRetryAttempts < 1 {
		return fmt.Errorf("max_error_retry_attempts must be greater than or equal to 1")
	}
	return nil
}

func (c *AwsConnection) GetClientConfiguration(ctx context.Context) (*aws.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var configOptions []func(*config.LoadOptions) error

	if c.Profile != nil {
		configOptions = append(configOptions, config.WithSharedConfigProfile(aws.ToString(c.Profile)))
	}

	if c.AccessKey != nil && c.SecretKey != nil {
		provider := credentials.NewStaticCredentialsProvider(
			aws.ToString(c.AccessKey),
			aws.ToString(c.SecretKey),
			typehelpers.SafeString(c.SessionToken))
		configOptions = append(configOptions, config.WithCredentialsProvider(provider))
	}

	if region := typehelpers.SafeString(c.Region); region != "" {
		configOptions = append(configOptions, config.WithRegion(region))
	}

	configOptions = append(configOptions, config.WithHTTPClient(sharedHTTPClient))

	cfg, err := config.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}

	maxRetries := defaultMaxErrorRetryAttempts
	if c.MaxErrorRetryAttempts != nil {
		maxRetries = *c.MaxErrorRetryAttempts
	}
	minRetryDelay := defaultMinErrorRetryDelay
	if c.MinErrorRetryDelay != nil {
		minRetryDelay = time.Duration(*c.MinErrorRetryDelay) * time.Millisecond
	}

	retryer := retry.NewStandard(func(o *retry.StandardOptions) {
		o.MaxAttempts = maxRetries
		o.MaxBackoff = 5 * time.Minute
		o.RateLimiter = NoOpRateLimit{}
		o.Backoff = NewExponentialJitterBackoff(minRetryDelay)
	})
	cfg.Retryer = func() aws.Retryer {
		// UnknownError is returned by the SDK for a 408
		return retry.AddWithErrorCodes(retryer, "UnknownError")
	}

	endpointUrl := typehelpers.SafeString(c.EndpointUrl)
	if endpointUrl == "" {
		endpointUrl = os.Getenv("AWS_ENDPOINT_URL")
	}
	if endpointUrl != "" {
		cfg.BaseEndpoint = aws.String(endpointUrl)
	}

	return &cfg, nil
}

// sharedHTTPClient is used by every AWS client. It caches DNS lookups and bounds the
// number of lookups in flight, which matters for buckets with many objects.
var sharedHTTPClient = newHTTPClient()

func newHTTPClient() aws.HTTPClient {
	dnsLookupMaxParallel := readEnvVarToInt("TRAIL_INSPECTOR_AWS_DNS_LOOKUP_MAX_PARALLEL", 25)
	// -1 disables the cache, 0 disables refresh
	dnsCacheRefreshIntervalSecs := readEnvVarToInt("TRAIL_INSPECTOR_AWS_DNS_CACHE_REFRESH_INTERVAL_SECS", 300)

	resolver := &dnscache.Resolver{}
	if dnsCacheRefreshIntervalSecs > 0 {
		go func() {
			t := time.NewTicker(time.Duration(dnsCacheRefreshIntervalSecs) * time.Second)
			defer t.Stop()
			for range t.C {
				resolver.Refresh(true)
			}
		}()
	}

	client := awshttp.NewBuildableClient()
	if dnsCacheRefreshIntervalSecs < 0 {
		return client
	}

	sem := semaphore.NewWeighted(int64(dnsLookupMaxParallel))
	dialer := client.GetDialer()

	return client.WithTransportOptions(func(tr *http.Transport) {
		tr.DialContext = func(ctx context.Context, network string, addr string) (conn net.Conn, err error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			sem.Release(1)
			if err != nil {
				return nil, err
			}

			for _, ip := range ips {
				conn, err = dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if err == nil {
					break
				}
			}
			return
		}
	})
}

func readEnvVarToInt(name string, defaultVal int) int {
	if envValue := os.Getenv(name); envValue != "" {
		if i, err := strconv.Atoi(envValue); err == nil {
			return i
		}
	}
	return defaultVal
}

// NoOpRateLimit disables the client side retry token bucket https://github.com/aws/aws-sdk-go-v2/issues/543
type NoOpRateLimit struct{}

func (NoOpRateLimit) AddTokens(uint) error { return nil }
func (NoOpRateLimit) GetToken(context.Context, uint) (func() error, error) {
	return noOpToken, nil
}
func noOpToken() error { return nil }

// ExponentialJitterBackoff grows the delay by a factor of 3 per attempt with +/-20% jitter, capped at 5 minutes
type ExponentialJitterBackoff struct {
	minDelay time.Duration
}

func NewExponentialJitterBackoff(minDelay time.Duration) *ExponentialJitterBackoff {
	return &ExponentialJitterBackoff{minDelay: minDelay}
}

func (j *ExponentialJitterBackoff) BackoffDelay(attempt int, err error) (time.Duration, error) {
	jitter := float64(rand.Intn(40)+80) / 100

	retryTime := time.Duration(float64(j.minDelay.Nanoseconds()) * math.Pow(3, float64(attempt)) * jitter)
	if retryTime > 5*time.Minute {
		retryTime = 5 * time.Minute
	}

	slog.Info("BackoffDelay", "attempt", attempt, "retry_time", retryTime.String(), "error", err)
	return retryTime, nil
}
