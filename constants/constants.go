package constants

const (
	AppName = "trail-inspector"

	// environment variables
	EnvLogLevel   = "TRAIL_INSPECTOR_LOG_LEVEL"
	EnvConfigPath = "TRAIL_INSPECTOR_CONFIG"

	DefaultConfigPath = "~/.trail-inspector/config.hcl"
	DefaultRegion     = "eu-west-1"
	DefaultFetchLimit = 100
)

// source types
const (
	SourceTypeAwsS3Bucket      = "aws_s3_bucket"
	SourceTypeGcpStorageBucket = "gcp_storage_bucket"
	SourceTypeFileSystem       = "file_system"
)

// budget policies
const (
	BudgetPolicyConsumeOnFailure   = "consume_on_failure"
	BudgetPolicyCountSuccessesOnly = "count_successes_only"
)
