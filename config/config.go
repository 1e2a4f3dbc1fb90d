package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/iancoleman/strcase"
	"github.com/mitchellh/go-homedir"
	"github.com/turbot/trail-inspector/constants"
)

// Config is the trail-inspector configuration, read from an HCL file.
// All attributes are optional.
type Config struct {
	Source string `hcl:"source,optional"`

	// aws connection
	Region                *string `hcl:"region,optional"`
	Profile               *string `hcl:"profile,optional"`
	AccessKey             *string `hcl:"access_key,optional"`
	SecretKey             *string `hcl:"secret_key,optional"`
	SessionToken          *string `hcl:"session_token,optional"`
	EndpointUrl           *string `hcl:"endpoint_url,optional"`
	S3ForcePathStyle      *bool   `hcl:"s3_force_path_style,optional"`
	MaxErrorRetryAttempts *int    `hcl:"max_error_retry_attempts,optional"`
	MinErrorRetryDelay    *int    `hcl:"min_error_retry_delay,optional"`

	// gcp connection
	Credentials  *string `hcl:"credentials,optional"`
	QuotaProject *string `hcl:"quota_project,optional"`

	// trail location - if bucket is set, trail discovery is skipped
	TrailName *string `hcl:"trail_name,optional"`
	Bucket    *string `hcl:"bucket,optional"`
	Prefix    *string `hcl:"prefix,optional"`

	// collection
	Limit          *int     `hcl:"limit,optional"`
	BudgetPolicy   *string  `hcl:"budget_policy,optional"`
	FetchRateLimit *float64 `hcl:"fetch_rate_limit,optional"`
	FetchBurst     *int     `hcl:"fetch_burst,optional"`
}

// Load reads the config file at path. If path is empty, the TRAIL_INSPECTOR_CONFIG env var is used,
// falling back to the default path. A missing default config file is not an error.
func Load(path string) (*Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv(constants.EnvConfigPath)
	}
	if path == "" {
		path = constants.DefaultConfigPath
		explicit = false
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path %s, %w", path, err)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			slog.Info("No config file found, using defaults", "path", expanded)
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file, %w", err)
	}

	return Parse(data, expanded)
}

// Parse decodes and validates HCL config data
func Parse(data []byte, filename string) (*Config, error) {
	c := Default()
	if err := ParseConfig(data, filename, hcl.Pos{Line: 1, Column: 1}, c); err != nil {
		return nil, err
	}
	if c.Source == "" {
		c.Source = constants.SourceTypeAwsS3Bucket
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config, %w", err)
	}
	return c, nil
}

func Default() *Config {
	return &Config{Source: constants.SourceTypeAwsS3Bucket}
}

func (c *Config) Validate() error {
	var validationErrors []string

	switch c.GetSource() {
	case constants.SourceTypeAwsS3Bucket, constants.SourceTypeGcpStorageBucket, constants.SourceTypeFileSystem:
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("unsupported source %q", c.Source))
	}

	if c.AccessKey != nil && c.SecretKey == nil {
		validationErrors = append(validationErrors, "access_key set without secret_key")
	}
	if c.AccessKey == nil && c.SecretKey != nil {
		validationErrors = append(validationErrors, "secret_key set without access_key")
	}
	if c.MaxErrorRetryAttempts != nil && *c.MaxErrorRetryAttempts < 1 {
		validationErrors = append(validationErrors, "max_error_retry_attempts must be greater than or equal to 1")
	}
	if c.MinErrorRetryDelay != nil && *c.MinErrorRetryDelay < 1 {
		validationErrors = append(validationErrors, "min_error_retry_delay must be greater than or equal to 1")
	}
	if c.Limit != nil && *c.Limit < 0 {
		validationErrors = append(validationErrors, "limit must not be negative")
	}
	switch c.GetBudgetPolicy() {
	case constants.BudgetPolicyConsumeOnFailure, constants.BudgetPolicyCountSuccessesOnly:
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("unsupported budget_policy %q", *c.BudgetPolicy))
	}
	if c.FetchRateLimit != nil && *c.FetchRateLimit < 0 {
		validationErrors = append(validationErrors, "fetch_rate_limit must not be negative")
	}
	if c.FetchBurst != nil && *c.FetchBurst < 1 {
		validationErrors = append(validationErrors, "fetch_burst must be greater than or equal to 1")
	}
	if c.GetSource() != constants.SourceTypeAwsS3Bucket && c.GetBucket() == "" {
		validationErrors = append(validationErrors, fmt.Sprintf("bucket is required for source %s", c.Source))
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, "; "))
	}
	return nil
}

// GetSource returns the source type in lower case, with dashes converted to underscores
func (c *Config) GetSource() string {
	if c.Source == "" {
		return constants.SourceTypeAwsS3Bucket
	}
	return strings.ReplaceAll(strings.ToLower(c.Source), "-", "_")
}

func (c *Config) GetRegion() string {
	if c.Region == nil || *c.Region == "" {
		return constants.DefaultRegion
	}
	return *c.Region
}

func (c *Config) GetLimit() int {
	if c.Limit == nil {
		return constants.DefaultFetchLimit
	}
	return *c.Limit
}

// GetBudgetPolicy returns the budget policy name normalized to snake case,
// so "CountSuccessesOnly" and "count-successes-only" are both accepted
func (c *Config) GetBudgetPolicy() string {
	if c.BudgetPolicy == nil || *c.BudgetPolicy == "" {
		return constants.BudgetPolicyConsumeOnFailure
	}
	return strcase.ToSnake(*c.BudgetPolicy)
}

func (c *Config) GetBucket() string {
	if c.Bucket == nil {
		return ""
	}
	return *c.Bucket
}

func (c *Config) GetPrefix() string {
	if c.Prefix == nil {
		return ""
	}
	return *c.Prefix
}

func (c *Config) GetFetchRateLimit() float64 {
	if c.FetchRateLimit == nil {
		return 0
	}
	return *c.FetchRateLimit
}

func (c *Config) GetFetchBurst() int {
	if c.FetchBurst == nil {
		return 1
	}
	return *c.FetchBurst
}
