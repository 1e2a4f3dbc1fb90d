package collector

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/turbot/trail-inspector/artifact_loader"
	"github.com/turbot/trail-inspector/artifact_source"
	"golang.org/x/exp/maps"
)

// FailureKind classifies why an object could not be collected
type FailureKind string

const (
	FailureNotFound    FailureKind = "not_found"
	FailureTransientIO FailureKind = "transient_io"
	FailureDecompress  FailureKind = "decompress"
	FailureParse       FailureKind = "parse"
	FailureUnknown     FailureKind = "unknown"
)

// ClassifyFailure returns the kind of a per-object collection error
func ClassifyFailure(err error) FailureKind {
	var notFound *artifact_source.NotFoundError
	var transient *artifact_source.TransientIOError
	var decompress *artifact_loader.DecompressError
	var parse *artifact_loader.ParseError

	switch {
	case errors.As(err, &notFound):
		return FailureNotFound
	case errors.As(err, &transient):
		return FailureTransientIO
	case errors.As(err, &decompress):
		return FailureDecompress
	case errors.As(err, &parse):
		return FailureParse
	default:
		return FailureUnknown
	}
}

// ItemFailure records an object which was skipped
type ItemFailure struct {
	Key  string
	Kind FailureKind
	Err  error
}

// Result summarises a single collection pass
type Result struct {
	ExecutionId string
	// number of listing entries examined before the pass ended
	Listed int
	// entries skipped because they were already cached
	CacheHits int
	// fetch attempts made
	Attempted int
	// objects fetched, parsed and cached
	Collected int
	Failures  []ItemFailure
	// set if the listing could not be completed; the pass still ends normally
	ListError error
}

func (r *Result) FailureCounts() map[FailureKind]int {
	counts := make(map[FailureKind]int)
	for _, f := range r.Failures {
		counts[f.Kind]++
	}
	return counts
}

// FailureSummary returns the failure counts as "kind=count" pairs sorted by kind, e.g. "decompress=1 not_found=2"
func (r *Result) FailureSummary() string {
	counts := r.FailureCounts()
	kinds := maps.Keys(counts)
	slices.Sort(kinds)

	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}
