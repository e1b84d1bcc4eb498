package datadog

import (
	"context"
	"net/http"
	"os"
	"reflect"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"tablecast/internal/metrics"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// fakeSubmitter captures payloads submitted by Backend.Flush().
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSubmitter) last() (datadogV2.MetricPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return datadogV2.MetricPayload{}, false
	}
	return f.payloads[len(f.payloads)-1], true
}

// TestResolveEnvTag verifies environment-tag precedence and defaults.
//
// Edge cases:
//   - ENV wins over DD_ENV.
//   - Whitespace-only env vars are ignored.
//   - If neither is set, "env:unknown" is returned.
func TestResolveEnvTag(t *testing.T) {
	oldENV := os.Getenv("ENV")
	oldDDENV := os.Getenv("DD_ENV")
	t.Cleanup(func() {
		_ = os.Setenv("ENV", oldENV)
		_ = os.Setenv("DD_ENV", oldDDENV)
	})

	tests := []struct {
		name string
		env  string
		dd   string
		want string
	}{
		{name: "ENV_wins", env: "prod", dd: "stage", want: "env:prod"},
		{name: "DD_ENV_used_when_ENV_empty", env: "", dd: "stage", want: "env:stage"},
		{name: "whitespace_ignored", env: "   ", dd: "\n\t", want: "env:unknown"},
		{name: "default_unknown", env: "", dd: "", want: "env:unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_ = os.Setenv("ENV", tc.env)
			_ = os.Setenv("DD_ENV", tc.dd)
			if got := resolveEnvTag(); got != tc.want {
				t.Fatalf("resolveEnvTag()=%q, want %q", got, tc.want)
			}
		})
	}
}

// TestPairKeyRoundTrip verifies key encoding/decoding.
func TestPairKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		a, b       string
		wantA      string
		wantB      string
	}{
		{name: "normal", a: "csv", b: "ok", wantA: "csv", wantB: "ok"},
		{name: "empty_format", a: "", b: "ok", wantA: "unknown", wantB: "ok"},
		{name: "empty_status", a: "json", b: "", wantA: "json", wantB: "unknown"},
		{name: "both_empty", a: "", b: "", wantA: "unknown", wantB: "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, b := splitPairKey(pairKey(tc.a, tc.b))
			if a != tc.wantA || b != tc.wantB {
				t.Fatalf("roundtrip got=(%q,%q), want=(%q,%q)", a, b, tc.wantA, tc.wantB)
			}
		})
	}

	t.Run("split_without_separator_defaults_unknown", func(t *testing.T) {
		a, b := splitPairKey("no-sep")
		if a != "no-sep" || b != "unknown" {
			t.Fatalf("splitPairKey()=(%q,%q), want=(%q,%q)", a, b, "no-sep", "unknown")
		}
	})
}

// TestWithTags verifies tag concatenation and immutability.
func TestWithTags(t *testing.T) {
	base := []string{"env:test", "service:tablecast"}
	extras := []string{"format:csv", "status:ok"}
	got := withTags(base, extras...)
	want := []string{"env:test", "service:tablecast", "format:csv", "status:ok"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("withTags()=%v, want %v", got, want)
	}
	if !reflect.DeepEqual(base, []string{"env:test", "service:tablecast"}) {
		t.Fatalf("withTags mutated base: %v", base)
	}
	got[0] = "env:mutated"
	if base[0] == "env:mutated" {
		t.Fatalf("withTags output aliases base slice; base should not change when output is modified")
	}
}

// TestPercentileNearestRank verifies percentile behavior.
func TestPercentileNearestRank(t *testing.T) {
	tests := []struct {
		name string
		s    []float64
		p    float64
		want float64
	}{
		{name: "empty", s: nil, p: 0.50, want: 0},
		{name: "single", s: []float64{7}, p: 0.95, want: 7},
		{name: "p_le_0", s: []float64{1, 2, 3}, p: -1, want: 1},
		{name: "p_ge_1", s: []float64{1, 2, 3}, p: 2, want: 3},
		{name: "median", s: []float64{1, 2, 3, 4, 5}, p: 0.50, want: 3},
		{name: "p90_small_n", s: []float64{1, 2, 3, 4, 5}, p: 0.90, want: 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := percentileNearestRank(tc.s, tc.p); got != tc.want {
				t.Fatalf("percentileNearestRank(%v,%v)=%v, want %v", tc.s, tc.p, got, tc.want)
			}
		})
	}
}

// TestGaugeSeries verifies gaugeSeries timestamps and values.
func TestGaugeSeries(t *testing.T) {
	now := int64(1234567)
	s := gaugeSeries("tablecast.test.gauge", 3.14, []string{"env:test"}, now)

	if s.Metric != "tablecast.test.gauge" {
		t.Fatalf("Metric=%q, want %q", s.Metric, "tablecast.test.gauge")
	}
	if s.Type == nil || *s.Type != datadogV2.METRICINTAKETYPE_GAUGE {
		t.Fatalf("Type=%v, want GAUGE", s.Type)
	}
	if len(s.Points) != 1 {
		t.Fatalf("Points.len=%d, want 1", len(s.Points))
	}
	if s.Points[0].Timestamp == nil || *s.Points[0].Timestamp != now {
		t.Fatalf("Timestamp=%v, want %d", s.Points[0].Timestamp, now)
	}
	if s.Points[0].Value == nil || *s.Points[0].Value != 3.14 {
		t.Fatalf("Value=%v, want 3.14", s.Points[0].Value)
	}
}

// TestAddPercentiles verifies addPercentiles produces the expected series and
// does not mutate input.
func TestAddPercentiles(t *testing.T) {
	now := int64(999)
	tags := []string{"env:test", "format:csv"}

	orig := []float64{5, 1, 3, 2, 4}
	in := append([]float64(nil), orig...) // preserve for mutation check

	var series []datadogV2.MetricSeries
	addPercentiles(&series, "tablecast.infer.duration_seconds", in, tags, now)

	// Expect 6 gauges: p50,p90,p95,p99,max,samples
	if len(series) != 6 {
		t.Fatalf("series.len=%d, want 6", len(series))
	}

	// Verify input not mutated (addPercentiles sorts a copy).
	if !reflect.DeepEqual(in, orig) {
		t.Fatalf("samples mutated: got %v, want %v", in, orig)
	}

	var foundSamples bool
	for _, s := range series {
		if s.Metric == "tablecast.infer.duration_seconds.samples" {
			foundSamples = true
			if s.Points[0].Value == nil || *s.Points[0].Value != 5 {
				t.Fatalf("samples gauge value=%v, want 5", s.Points[0].Value)
			}
			break
		}
	}
	if !foundSamples {
		t.Fatalf("did not find samples gauge series")
	}
}

// TestNewBackend_Defaults verifies defaults and initialization without real HTTP.
func TestNewBackend_Defaults(t *testing.T) {
	fs := &fakeSubmitter{}
	opts := Options{
		ServiceName: "", // should default
		FlushEvery:  0,  // should default
		Tags:        []string{"team:data"},
		submitter:   fs,
		now:         func() time.Time { return time.Unix(123, 0) },
		newTicker:   func(d time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) }, // effectively disables loop in this test
	}

	b, err := NewBackend(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewBackend() err=%v, want nil", err)
	}
	defer func() { _ = b.Close() }()

	if !contains(b.baseTags, "service:tablecast") {
		t.Fatalf("baseTags missing service:tablecast: %v", b.baseTags)
	}
	if !contains(b.baseTags, "team:data") {
		t.Fatalf("baseTags missing team:data: %v", b.baseTags)
	}
	if b.flushEvery != 60*time.Second {
		t.Fatalf("flushEvery=%s, want 60s", b.flushEvery)
	}
}

// TestFlush_SubmitsAndResets verifies Flush submits buffered metrics and resets buffers.
func TestFlush_SubmitsAndResets(t *testing.T) {
	fs := &fakeSubmitter{}
	opts := Options{
		ServiceName: "svc1",
		FlushEvery:  24 * time.Hour,
		submitter:   fs,
		now:         func() time.Time { return time.Unix(1000, 0) },
		newTicker:   func(d time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) },
	}

	b, err := NewBackend(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	defer func() { _ = b.Close() }()

	b.IncCounter(metrics.UploadsTotal, 2, metrics.Labels{"format": "csv", "status": "ok"})
	b.IncCounter(metrics.RowsTotal, 150, metrics.Labels{"format": "csv"})
	b.IncCounter(metrics.QueriesTotal, 3, metrics.Labels{"op": "filter"})
	b.ObserveHistogram(metrics.InferDurationSeconds, 0.5, metrics.Labels{"format": "csv"})
	b.IncCounter(metrics.HTTPRequestsTotal, 7, metrics.Labels{"status": "200"})
	b.ObserveHistogram(metrics.HTTPRequestDurationSeconds, 0.1, metrics.Labels{"status": "200"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	if fs.count() != 1 {
		t.Fatalf("submit calls=%d, want 1", fs.count())
	}

	// Buffers should be reset after flush.
	if len(b.uploadCounts) != 0 || len(b.rowCounts) != 0 || len(b.queryCounts) != 0 || len(b.inferDur) != 0 {
		t.Fatalf("buffers not reset after Flush")
	}

	payload, ok := fs.last()
	if !ok {
		t.Fatalf("missing payload")
	}

	var metricNames []string
	for _, s := range payload.Series {
		metricNames = append(metricNames, s.Metric)
	}
	sort.Strings(metricNames)

	wantContains := []string{
		"tablecast.uploads.total",
		"tablecast.rows.total",
		"tablecast.queries.total",
		"tablecast.infer.duration_seconds.p50",
		"tablecast.infer.duration_seconds.samples",
		"tablecast.http.requests.total",
		"tablecast.http.request_duration_seconds.p50",
		"tablecast.http.request_duration_seconds.samples",
	}
	for _, w := range wantContains {
		if !contains(metricNames, w) {
			t.Fatalf("payload missing metric %q; got=%v", w, metricNames)
		}
	}
}

// TestFlush_NoDataDoesNotSubmit verifies Flush returns nil and does not submit when empty.
func TestFlush_NoDataDoesNotSubmit(t *testing.T) {
	fs := &fakeSubmitter{}
	opts := Options{
		ServiceName: "svc1",
		FlushEvery:  24 * time.Hour,
		submitter:   fs,
		now:         func() time.Time { return time.Unix(1000, 0) },
		newTicker:   func(d time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) },
	}

	b, err := NewBackend(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	defer func() { _ = b.Close() }()

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	if fs.count() != 0 {
		t.Fatalf("unexpected submission count=%d, want 0", fs.count())
	}
}

// TestLoopAndClose verifies the background loop flushes periodically and Close
// performs a final flush.
func TestLoopAndClose(t *testing.T) {
	fs := &fakeSubmitter{}

	// Use a fast ticker to trigger at least one background flush.
	opts := Options{
		ServiceName: "svc1",
		FlushEvery:  5 * time.Millisecond,
		submitter:   fs,
		now:         func() time.Time { return time.Unix(2000, 0) },
	}

	b, err := NewBackend(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}

	b.IncCounter(metrics.QueriesTotal, 1, metrics.Labels{"op": "get"})

	deadline := time.Now().Add(250 * time.Millisecond)
	for time.Now().Before(deadline) {
		if fs.count() >= 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if fs.count() < 1 {
		_ = b.Close()
		t.Fatalf("expected at least one background Flush submission; got %d", fs.count())
	}

	// Add more data; Close should perform a final flush.
	b.IncCounter(metrics.QueriesTotal, 1, metrics.Labels{"op": "get"})
	if err := b.Close(); err != nil {
		t.Fatalf("Close() err=%v, want nil", err)
	}

	if fs.count() < 2 {
		t.Fatalf("expected at least 2 submissions after Close; got %d", fs.count())
	}
}

// TestBackend_ConcurrentAccess verifies thread-safety of buffering.
func TestBackend_ConcurrentAccess(t *testing.T) {
	fs := &fakeSubmitter{}
	opts := Options{
		ServiceName: "svc1",
		FlushEvery:  24 * time.Hour,
		submitter:   fs,
		now:         func() time.Time { return time.Unix(3000, 0) },
		newTicker:   func(d time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) },
	}
	b, err := NewBackend(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	defer func() { _ = b.Close() }()

	workers := runtime.GOMAXPROCS(0) * 4
	iters := 2000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				b.IncCounter(metrics.UploadsTotal, 1, metrics.Labels{"format": "csv", "status": "ok"})
				b.IncCounter(metrics.RowsTotal, 10, metrics.Labels{"format": "csv"})
				b.IncCounter(metrics.QueriesTotal, 1, metrics.Labels{"op": "filter"})
				b.ObserveHistogram(metrics.InferDurationSeconds, 0.01, metrics.Labels{"format": "csv"})
				b.ObserveHistogram(metrics.HTTPRequestDurationSeconds, 0.02, metrics.Labels{"status": "200"})
			}
		}()
	}
	wg.Wait()

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	if fs.count() != 1 {
		t.Fatalf("submit calls=%d, want 1", fs.count())
	}
}

// TestIncCounterAndObserveHistogram_EdgeCases verifies ignored paths and defaults.
func TestIncCounterAndObserveHistogram_EdgeCases(t *testing.T) {
	fs := &fakeSubmitter{}
	opts := Options{
		ServiceName: "svc1",
		FlushEvery:  24 * time.Hour,
		submitter:   fs,
		now:         func() time.Time { return time.Unix(4000, 0) },
		newTicker:   func(d time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) },
	}
	b, err := NewBackend(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	defer func() { _ = b.Close() }()

	// Non-positive counter should be ignored.
	b.IncCounter(metrics.QueriesTotal, 0, metrics.Labels{"op": "get"})
	// Missing op should be ignored.
	b.IncCounter(metrics.QueriesTotal, 1, metrics.Labels{})
	// Unknown metric should be ignored.
	b.IncCounter("unknown_total", 1, metrics.Labels{"x": "y"})
	// Negative histogram should be ignored.
	b.ObserveHistogram(metrics.InferDurationSeconds, -1, metrics.Labels{"format": "csv"})
	// Missing status should default "unknown".
	b.IncCounter(metrics.HTTPRequestsTotal, 1, metrics.Labels{})
	b.ObserveHistogram(metrics.HTTPRequestDurationSeconds, 0.1, metrics.Labels{})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}

	payload, ok := fs.last()
	if !ok {
		t.Fatalf("missing payload")
	}

	var sawHTTPCount bool
	var sawP50 bool
	for _, s := range payload.Series {
		if s.Metric == "tablecast.http.requests.total" && contains(s.Tags, "status:unknown") {
			sawHTTPCount = true
		}
		if s.Metric == "tablecast.http.request_duration_seconds.p50" && contains(s.Tags, "status:unknown") {
			sawP50 = true
		}
	}
	if !sawHTTPCount {
		t.Fatalf("expected tablecast.http.requests.total for status:unknown")
	}
	if !sawP50 {
		t.Fatalf("expected tablecast.http.request_duration_seconds.p50 for status:unknown")
	}
}

func contains[T comparable](xs []T, v T) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "empty_returns_nil",
			in:   "",
			want: nil,
		},
		{
			name: "trims_and_skips_empty_segments",
			in:   " env:prod , ,team:data,  ,region:eu ",
			want: []string{"env:prod", "team:data", "region:eu"},
		},
		{
			name: "single_tag",
			in:   "team:data",
			want: []string{"team:data"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ParseTagsCSV(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseTagsCSV(%q)=%v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
