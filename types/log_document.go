package types

import "time"

// Record is a single CloudTrail event. Only EventTime and EventName are expected to be present,
// all other fields are empty when absent from the source record.
type Record struct {
	// EventTime is the parsed eventTime, zero if it was absent or not RFC 3339
	EventTime time.Time
	// RawEventTime is eventTime exactly as it appears in the log
	RawEventTime string

	EventName       string
	UserIdentityArn string
	EventSource     string
	UserAgent       string
	SourceIPAddress string
}

// LogDocument is the parsed content of one log object
type LogDocument struct {
	// the key of the object this document was loaded from
	Key     string
	Records []*Record
}

func NewLogDocument(key string, records []*Record) *LogDocument {
	return &LogDocument{Key: key, Records: records}
}
