package constants

// CloudTrail record fields read by the loader
const (
	RecordsKey           = "Records"
	FieldEventTime       = "eventTime"
	FieldEventName       = "eventName"
	FieldUserIdentity    = "userIdentity"
	FieldArn             = "arn"
	FieldEventSource     = "eventSource"
	FieldUserAgent       = "userAgent"
	FieldSourceIPAddress = "sourceIPAddress"
)
