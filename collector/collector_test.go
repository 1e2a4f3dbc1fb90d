package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turbot/trail-inspector/artifact_loader"
	"github.com/turbot/trail-inspector/artifact_source"
	"github.com/turbot/trail-inspector/rate_limiter"
	"github.com/turbot/trail-inspector/types"
)

// fakeStore lists a fixed set of keys and serves object bodies from memory
type fakeStore struct {
	keys      []string
	objects   map[string][]byte
	fetchErrs map[string]error
	// yielded after all keys, if set
	listErr error

	listCalls int
	yielded   int
	fetched   []string
}

func (f *fakeStore) ListObjects(_ context.Context, _, _ string) iter.Seq2[*types.ObjectInfo, error] {
	f.listCalls++
	return func(yield func(*types.ObjectInfo, error) bool) {
		for _, k := range f.keys {
			f.yielded++
			if !yield(types.NewObjectInfo(k), nil) {
				return
			}
		}
		if f.listErr != nil {
			yield(nil, f.listErr)
		}
	}
}

func (f *fakeStore) FetchObject(_ context.Context, _, key string) ([]byte, error) {
	f.fetched = append(f.fetched, key)
	if err, ok := f.fetchErrs[key]; ok {
		return nil, err
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, artifact_source.NewNotFoundError(key, errors.New("no such key"))
	}
	return data, nil
}

// countingLoader counts loads per key
type countingLoader struct {
	loader *artifact_loader.CloudTrailLoader
	loads  map[string]int
}

func newCountingLoader() *countingLoader {
	return &countingLoader{loader: artifact_loader.NewCloudTrailLoader(), loads: make(map[string]int)}
}

func (l *countingLoader) Load(key string, raw []byte) (*types.LogDocument, error) {
	l.loads[key]++
	return l.loader.Load(key, raw)
}

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func validLog(t *testing.T, eventName string) []byte {
	return gzipBytes(t, fmt.Sprintf(`{"Records":[{"eventTime":"2024-08-19T12:00:00Z","eventName":%q}]}`, eventName))
}

// newFakeStore returns a store where every key is a valid log object
func newFakeStore(t *testing.T, keys ...string) *fakeStore {
	s := &fakeStore{keys: keys, objects: make(map[string][]byte), fetchErrs: make(map[string]error)}
	for _, k := range keys {
		s.objects[k] = validLog(t, "event-"+k)
	}
	return s
}

func keysOf(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("AWSLogs/%02d.json.gz", i)
	}
	return keys
}

func TestCollector_Collect_DoesNotRefetchCachedObjects(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t, "a", "b")
	loader := newCountingLoader()
	c := NewCollector(store, store, "bucket", "", WithLoader(loader))

	res, err := c.Collect(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Collected)
	docA, _ := c.Cache().Get("a")
	docB, _ := c.Cache().Get("b")

	res, err = c.Collect(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Attempted)
	assert.Equal(t, 2, res.CacheHits)
	assert.Equal(t, []string{"a", "b"}, store.fetched)
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, loader.loads)
	assert.Equal(t, 2, store.listCalls, "each pass re-lists the bucket")

	gotA, _ := c.Cache().Get("a")
	gotB, _ := c.Cache().Get("b")
	assert.Same(t, docA, gotA)
	assert.Same(t, docB, gotB)
}

func TestCollector_Collect_NewObjectsOnLaterPass(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t, "a")
	c := NewCollector(store, store, "bucket", "")

	_, err := c.Collect(ctx, 10)
	require.NoError(t, err)

	store.keys = append(store.keys, "b")
	store.objects["b"] = validLog(t, "later")

	res, err := c.Collect(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CacheHits)
	assert.Equal(t, 1, res.Collected)
	assert.Equal(t, []string{"a", "b"}, c.Cache().Keys())
}

func TestCollector_Collect_Budget(t *testing.T) {
	store := newFakeStore(t, keysOf(10)...)
	c := NewCollector(store, store, "bucket", "")

	res, err := c.Collect(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, keysOf(3), store.fetched)
	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 3, c.Cache().Len())
	// the loop ends as soon as the budget is spent
	assert.Equal(t, 3, store.yielded)
	assert.Equal(t, 3, res.Listed)
}

func TestCollector_Collect_StopsBeforeLaterCacheHits(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t, "c", "d")
	c := NewCollector(store, store, "bucket", "")
	_, err := c.Collect(ctx, 10)
	require.NoError(t, err)

	// a and b are listed before the cached objects
	store.keys = []string{"a", "b", "c", "d"}
	store.objects["a"] = validLog(t, "a")
	store.objects["b"] = validLog(t, "b")
	store.yielded = 0

	res, err := c.Collect(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Collected)
	assert.Equal(t, 0, res.CacheHits)
	assert.Equal(t, 2, store.yielded)
}

func TestCollector_Collect_CacheHitsAreFree(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t, "a", "b")
	c := NewCollector(store, store, "bucket", "")
	_, err := c.Collect(ctx, 10)
	require.NoError(t, err)

	store.keys = []string{"a", "b", "c", "d"}
	store.objects["c"] = validLog(t, "c")
	store.objects["d"] = validLog(t, "d")

	res, err := c.Collect(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.CacheHits)
	assert.Equal(t, 2, res.Collected)
	assert.Equal(t, 4, c.Cache().Len())
}

func TestCollector_Collect_SkipsFetchFailures(t *testing.T) {
	store := newFakeStore(t, "a", "AWSLogs/", "b", "flaky", "c")
	store.fetchErrs["AWSLogs/"] = artifact_source.NewNotFoundError("AWSLogs/", artifact_source.ErrDirectoryPlaceholder)
	store.fetchErrs["flaky"] = artifact_source.NewTransientIOError("flaky", errors.New("connection reset"))
	c := NewCollector(store, store, "bucket", "")

	res, err := c.Collect(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, c.Cache().Keys())
	assert.Equal(t, 5, res.Attempted)
	assert.Equal(t, 3, res.Collected)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, ItemFailure{Key: "AWSLogs/", Kind: FailureNotFound, Err: store.fetchErrs["AWSLogs/"]}, res.Failures[0])
	assert.Equal(t, FailureTransientIO, res.Failures[1].Kind)
	assert.Equal(t, map[FailureKind]int{FailureNotFound: 1, FailureTransientIO: 1}, res.FailureCounts())
}

func TestCollector_Collect_SkipsMalformedObjects(t *testing.T) {
	store := newFakeStore(t, "empty", "plain", "badjson", "norecords", "good")
	store.objects["empty"] = []byte{}
	store.objects["plain"] = []byte(`{"Records":[]}`)
	store.objects["badjson"] = gzipBytes(t, `{"Records":[`)
	store.objects["norecords"] = gzipBytes(t, `{"events":[]}`)
	c := NewCollector(store, store, "bucket", "")

	res, err := c.Collect(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, c.Cache().Keys())

	var kinds []FailureKind
	for _, f := range res.Failures {
		kinds = append(kinds, f.Kind)
		assert.False(t, c.Cache().Contains(f.Key))
	}
	assert.Equal(t, []FailureKind{FailureDecompress, FailureDecompress, FailureParse, FailureParse}, kinds)
	assert.Equal(t, "decompress=2 parse=2", res.FailureSummary())
}

func TestCollector_Collect_BudgetPolicy(t *testing.T) {
	tests := []struct {
		name          string
		policy        BudgetPolicy
		wantAttempted int
		wantCollected []string
	}{
		{
			name:          "failures consume budget",
			policy:        BudgetConsumeOnFailure,
			wantAttempted: 2,
			wantCollected: []string{},
		},
		{
			name:          "only successes consume budget",
			policy:        BudgetCountSuccessesOnly,
			wantAttempted: 4,
			wantCollected: []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(t, "bad1", "bad2", "a", "b", "c")
			store.objects["bad1"] = []byte("not gzip")
			store.objects["bad2"] = []byte("not gzip")
			c := NewCollector(store, store, "bucket", "", WithBudgetPolicy(tt.policy))

			res, err := c.Collect(context.Background(), 2)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAttempted, res.Attempted)
			assert.Equal(t, tt.wantCollected, c.Cache().Keys())
		})
	}
}

func TestCollector_Collect_FailedObjectRetriedOnNextPass(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(t, "a", "b")
	store.objects["a"] = []byte("partial upload")
	c := NewCollector(store, store, "bucket", "")

	_, err := c.Collect(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, c.Cache().Keys())

	store.objects["a"] = validLog(t, "a")
	res, err := c.Collect(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Collected)
	assert.True(t, c.Cache().Contains("a"))
}

func TestCollector_Collect_EmptyListing(t *testing.T) {
	store := newFakeStore(t)
	c := NewCollector(store, store, "bucket", "")

	res, err := c.Collect(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Attempted)
	assert.Empty(t, store.fetched)
	assert.Equal(t, 0, c.Cache().Len())
	assert.Empty(t, res.Failures)
	assert.Empty(t, res.FailureSummary())
}

func TestCollector_Collect_ListingError(t *testing.T) {
	store := newFakeStore(t, "a")
	store.listErr = errors.New("access denied")
	c := NewCollector(store, store, "bucket", "")

	res, err := c.Collect(context.Background(), 10)
	require.NoError(t, err)
	assert.ErrorContains(t, res.ListError, "access denied")
	assert.Equal(t, 1, res.Collected)
}

func TestCollector_Collect_Limits(t *testing.T) {
	store := newFakeStore(t, "a")
	c := NewCollector(store, store, "bucket", "")

	_, err := c.Collect(context.Background(), -1)
	assert.ErrorIs(t, err, ErrNegativeLimit)

	res, err := c.Collect(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Attempted)
	assert.Empty(t, store.fetched)
	assert.Equal(t, 0, store.listCalls)
}

func TestCollector_Collect_Cancelled(t *testing.T) {
	store := newFakeStore(t, "a", "b")
	c := NewCollector(store, store, "bucket", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Collect(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.fetched)
	assert.Equal(t, 0, c.Cache().Len())
}

func TestCollector_Collect_RateLimitBeyondDeadline(t *testing.T) {
	keys := keysOf(5)
	store := newFakeStore(t, keys...)
	limiter := rate_limiter.NewAPILimiter(&rate_limiter.Definition{Name: "fetch", FillRate: 0.1, BucketSize: 1})
	c := NewCollector(store, store, "bucket", "", WithRateLimiter(limiter))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := c.Collect(ctx, 5)
	require.Error(t, err)
	require.NotNil(t, res)
	// the burst allows a single fetch, the next one could not happen before the deadline
	assert.Equal(t, []string{keys[0]}, store.fetched)
	assert.Equal(t, 1, res.Attempted)
	assert.Equal(t, 1, res.Collected)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 1, c.Cache().Len())
}

func TestCollector_InstancesDoNotShareCache(t *testing.T) {
	store := newFakeStore(t, "a")
	first := NewCollector(store, store, "bucket", "")
	second := NewCollector(store, store, "bucket", "")

	_, err := first.Collect(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Cache().Len())
	assert.Equal(t, 0, second.Cache().Len())
}
