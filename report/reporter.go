package report

import (
	"bufio"
	"io"
	"strings"

	"github.com/turbot/trail-inspector/collection_state"
	"github.com/turbot/trail-inspector/types"
)

// EventTimeFormat is the format CloudTrail itself uses for eventTime
const EventTimeFormat = "2006-01-02T15:04:05Z"

// Columns are the names of the rendered fields, in output order
var Columns = []string{"event_time", "event_name", "user_identity_arn", "event_source", "user_agent", "source_ip_address"}

// Row is a single rendered record. Absent fields are empty strings.
// The event time is printed as it appears in the log when the record carries it.
type Row struct {
	EventTime       string
	EventName       string
	UserIdentityArn string
	EventSource     string
	UserAgent       string
	SourceIPAddress string
}

func NewRow(r *types.Record) Row {
	row := Row{
		EventName:       r.EventName,
		UserIdentityArn: r.UserIdentityArn,
		EventSource:     r.EventSource,
		UserAgent:       r.UserAgent,
		SourceIPAddress: r.SourceIPAddress,
	}
	switch {
	case r.RawEventTime != "":
		row.EventTime = r.RawEventTime
	case !r.EventTime.IsZero():
		row.EventTime = r.EventTime.UTC().Format(EventTimeFormat)
	}
	return row
}

func (r Row) Fields() []string {
	return []string{r.EventTime, r.EventName, r.UserIdentityArn, r.EventSource, r.UserAgent, r.SourceIPAddress}
}

// String returns the row as tab separated fields
func (r Row) String() string {
	return strings.Join(r.Fields(), "\t")
}

// Reporter renders cached log documents as rows, one per record
type Reporter struct{}

func NewReporter() *Reporter {
	return &Reporter{}
}

// Render returns a row for every record in the cache, in cache order then record order
func (r *Reporter) Render(cache *collection_state.LogCache) []Row {
	var rows []Row
	for _, doc := range cache.All() {
		for _, record := range doc.Records {
			if record == nil {
				continue
			}
			rows = append(rows, NewRow(record))
		}
	}
	return rows
}

// Write writes every row to w as a line of tab separated fields and returns the number of rows written
func (r *Reporter) Write(w io.Writer, cache *collection_state.LogCache) (int, error) {
	bw := bufio.NewWriter(w)
	count := 0
	for _, row := range r.Render(cache) {
		if _, err := bw.WriteString(row.String() + "\n"); err != nil {
			return count, err
		}
		count++
	}
	return count, bw.Flush()
}
