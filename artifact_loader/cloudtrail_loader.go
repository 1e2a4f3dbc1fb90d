package artifact_loader

import (
	"bytes"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/turbot/trail-inspector/constants"
	"github.com/turbot/trail-inspector/types"
	"github.com/valyala/fastjson"
)

// CloudTrailLoader decompresses gzipped CloudTrail log objects and extracts their records.
// It reuses a single JSON parser so must not be shared between goroutines.
type CloudTrailLoader struct {
	parser fastjson.Parser
}

func NewCloudTrailLoader() *CloudTrailLoader {
	return &CloudTrailLoader{}
}

// Load decompresses and parses raw object data.
// It returns a *DecompressError if the data is not gzip and a *ParseError if the decompressed
// data is not a JSON object with a Records array.
func (l *CloudTrailLoader) Load(key string, raw []byte) (*types.LogDocument, error) {
	data, err := Decompress(raw)
	if err != nil {
		return nil, &DecompressError{Key: key, Err: err}
	}

	doc, err := l.parse(key, data)
	if err != nil {
		return nil, &ParseError{Key: key, Err: err}
	}
	return doc, nil
}

// Decompress gunzips data, detecting the gzip header. Concatenated gzip members are read as one stream.
func Decompress(raw []byte) ([]byte, error) {
	gzReader, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer gzReader.Close()

	return io.ReadAll(gzReader)
}

func (l *CloudTrailLoader) parse(key string, data []byte) (*types.LogDocument, error) {
	v, err := l.parser.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	if v.Type() != fastjson.TypeObject {
		return nil, ErrNotAnObject
	}

	recordsValue := v.Get(constants.RecordsKey)
	if recordsValue == nil {
		return nil, ErrMissingRecords
	}
	values, err := recordsValue.Array()
	if err != nil {
		return nil, err
	}

	records := make([]*types.Record, 0, len(values))
	skipped := 0
	for _, rv := range values {
		if rv.Type() != fastjson.TypeObject {
			skipped++
			continue
		}
		records = append(records, recordFromValue(rv))
	}
	if skipped > 0 {
		slog.Debug("Skipped records which are not objects", "key", key, "skipped", skipped)
	}

	return types.NewLogDocument(key, records), nil
}

// recordFromValue extracts the known fields, leaving any which are absent or not strings empty.
// The strings are copied, so the record does not reference parser memory.
func recordFromValue(v *fastjson.Value) *types.Record {
	r := &types.Record{
		EventName:       string(v.GetStringBytes(constants.FieldEventName)),
		UserIdentityArn: string(v.GetStringBytes(constants.FieldUserIdentity, constants.FieldArn)),
		EventSource:     string(v.GetStringBytes(constants.FieldEventSource)),
		UserAgent:       string(v.GetStringBytes(constants.FieldUserAgent)),
		SourceIPAddress: string(v.GetStringBytes(constants.FieldSourceIPAddress)),
	}
	if eventTime := v.GetStringBytes(constants.FieldEventTime); eventTime != nil {
		r.RawEventTime = string(eventTime)
		if t, err := time.Parse(time.RFC3339, r.RawEventTime); err == nil {
			r.EventTime = t.UTC()
		}
	}
	return r
}
