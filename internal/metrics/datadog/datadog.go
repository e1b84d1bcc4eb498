// Package datadog implements a Datadog backend for the internal/metrics package.
//
// NOTE ABOUT FLUSHING:
// The service is long-running, so submitting only at shutdown would produce a
// single spike instead of a time series. Therefore we:
//   - buffer metrics in-memory (fast, lock-protected)
//   - periodically Flush() on a ticker (default: once per minute)
//   - Flush() one final time on Close()
//
// Concurrency model:
//   - request handlers can call IncCounter/ObserveHistogram at any time
//   - Flush snapshots+resets buffers under a mutex, then submits out-of-lock
//   - the flush loop calls Flush() periodically; Close() stops the loop
//
// If the process is killed with SIGKILL/OOM, Close() won't run (no backend can
// fix that).
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"tablecast/internal/metrics"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Options controls Datadog backend configuration.
type Options struct {
	// ServiceName becomes tag "service:<name>" on every metric.
	// If empty, defaults to "tablecast".
	ServiceName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// The following fields are unexported test seams.
	//
	// Production code never sets them; unit tests set them to avoid real
	// network submission and nondeterministic clocks/tickers.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal interface needed to submit metrics.
//
// The Datadog SDK exposes a concrete *datadogV2.MetricsApi, which cannot be
// stubbed without real HTTP. Backend depends on this interface instead,
// enabling deterministic tests with a fake submitter.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	// now is injected for deterministic tests. Production uses time.Now.
	now func() time.Time

	// newTicker is injected for deterministic tests. Production uses time.NewTicker.
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	uploadCounts map[string]float64 // format\x00status -> count
	rowCounts    map[string]float64 // format -> count
	queryCounts  map[string]float64 // op -> count
	inferDur     map[string][]float64

	httpReqCounts map[string]float64 // status -> count
	httpReqDur    map[string][]float64
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client.
//
// Edge cases:
//   - If opts.FlushEvery <= 0, defaults to 60s.
//   - If opts.ServiceName is empty, defaults to "tablecast".
//   - Environment tag selection uses ENV then DD_ENV, otherwise env:unknown.
//
// Errors:
//   - Datadog client construction is not expected to fail under normal
//     conditions; network errors surface from Flush().
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	service := opts.ServiceName
	if service == "" {
		service = "tablecast"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "service:"+service)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		cfg := dd.NewConfiguration()
		client := dd.NewAPIClient(cfg)
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),

		baseTags: baseTags,

		now:       nowFn,
		newTicker: newTicker,

		uploadCounts: make(map[string]float64),
		rowCounts:    make(map[string]float64),
		queryCounts:  make(map[string]float64),
		inferDur:     make(map[string][]float64),

		httpReqCounts: make(map[string]float64),
		httpReqDur:    make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush().
//
// Errors:
//   - Returns any error from the final Flush() submission.
//   - Calling Close twice panics (stopCh closed twice); treat Close as
//     "call once", which is acceptable for process-lifetime backends.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.UploadsTotal:
		b.uploadCounts[pairKey(labels["format"], labels["status"])] += delta

	case metrics.RowsTotal:
		format := labels["format"]
		if format == "" {
			format = "unknown"
		}
		b.rowCounts[format] += delta

	case metrics.QueriesTotal:
		op := labels["op"]
		if op == "" {
			return
		}
		b.queryCounts[op] += delta

	case metrics.HTTPRequestsTotal:
		status := labels["status"]
		if status == "" {
			status = "unknown"
		}
		b.httpReqCounts[status] += delta

	default:
		// Unknown metrics are dropped.
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.InferDurationSeconds:
		format := labels["format"]
		if format == "" {
			format = "unknown"
		}
		b.inferDur[format] = append(b.inferDur[format], value)

	case metrics.HTTPRequestDurationSeconds:
		status := labels["status"]
		if status == "" {
			status = "unknown"
		}
		b.httpReqDur[status] = append(b.httpReqDur[status], value)

	default:
		// Unknown histograms are dropped.
	}
}

// snapshot is the immutable set of buffered metric state used to build a
// flush payload. Flush() must reset buffers under a lock but submit
// out-of-lock; snapshot separates collect+reset from payload building.
type snapshot struct {
	uploadCounts map[string]float64
	rowCounts    map[string]float64
	queryCounts  map[string]float64
	inferDur     map[string][]float64

	httpReqCounts map[string]float64
	httpReqDur    map[string][]float64
}

// snapshotAndReset grabs current buffered metrics and resets internal buffers.
//
// Concurrency:
//   - Must be called with no lock held. Takes the lock internally and
//     returns detached maps/slices.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		uploadCounts: b.uploadCounts,
		rowCounts:    b.rowCounts,
		queryCounts:  b.queryCounts,
		inferDur:     b.inferDur,

		httpReqCounts: b.httpReqCounts,
		httpReqDur:    b.httpReqDur,
	}

	b.uploadCounts = make(map[string]float64)
	b.rowCounts = make(map[string]float64)
	b.queryCounts = make(map[string]float64)
	b.inferDur = make(map[string][]float64)

	b.httpReqCounts = make(map[string]float64)
	b.httpReqDur = make(map[string][]float64)

	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.uploadCounts) == 0 &&
		len(s.rowCounts) == 0 &&
		len(s.queryCounts) == 0 &&
		len(s.inferDur) == 0 &&
		len(s.httpReqCounts) == 0 &&
		len(s.httpReqDur) == 0
}

// Flush submits buffered metrics to Datadog and resets local buffers.
//
// Edge cases:
//   - Flush is safe to call concurrently with IncCounter/ObserveHistogram.
//   - Flush resets buffers even if submission fails, to keep handlers fast
//     and avoid blocking future writes. If you need "at least once"
//     delivery, that is a different architecture.
//
// Errors:
//   - Returns any error from Datadog submission.
//   - Returns nil if there is nothing to submit.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	series := b.buildSeries(snap, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries constructs Datadog series for a snapshot at a fixed timestamp.
//
// It is pure (no locks, no network, no clocks), making it easy to unit test,
// and it centralizes naming/tagging behavior, which is an operational
// contract.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(s.uploadCounts)+len(s.rowCounts)+32)

	for k, v := range s.uploadCounts {
		if v == 0 {
			continue
		}
		format, status := splitPairKey(k)
		tags := withTags(b.baseTags, "format:"+format, "status:"+status)
		series = append(series, countSeries("tablecast.uploads.total", v, tags, nowUnix))
	}

	for format, v := range s.rowCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "format:"+format)
		series = append(series, countSeries("tablecast.rows.total", v, tags, nowUnix))
	}

	for op, v := range s.queryCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "op:"+op)
		series = append(series, countSeries("tablecast.queries.total", v, tags, nowUnix))
	}

	for format, samples := range s.inferDur {
		tags := withTags(b.baseTags, "format:"+format)
		addPercentiles(&series, "tablecast.infer.duration_seconds", samples, tags, nowUnix)
	}

	for status, v := range s.httpReqCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "status:"+status)
		series = append(series, countSeries("tablecast.http.requests.total", v, tags, nowUnix))
	}

	for status, samples := range s.httpReqDur {
		tags := withTags(b.baseTags, "status:"+status)
		addPercentiles(&series, "tablecast.http.request_duration_seconds", samples, tags, nowUnix)
	}

	return series
}

// addPercentiles appends a fixed set of percentile gauges for a sample set.
//
// Edge cases:
//   - If samples is empty, it does nothing.
//   - It sorts a copy of samples (does not mutate input).
func addPercentiles(series *[]datadogV2.MetricSeries, metricPrefix string, samples []float64, tags []string, nowUnix int64) {
	if len(samples) == 0 {
		return
	}
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)

	*series = append(*series, gaugeSeries(metricPrefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p90", percentileNearestRank(cp, 0.90), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p95", percentileNearestRank(cp, 0.95), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p99", percentileNearestRank(cp, 0.99), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".max", cp[len(cp)-1], tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".samples", float64(len(cp)), tags, nowUnix))
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func pairKey(a, b string) string {
	if a == "" {
		a = "unknown"
	}
	if b == "" {
		b = "unknown"
	}
	return a + "\x00" + b
}

func splitPairKey(k string) (string, string) {
	parts := strings.SplitN(k, "\x00", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return k, "unknown"
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,team:data".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
