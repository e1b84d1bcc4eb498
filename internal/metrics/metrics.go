// Package metrics defines the backend-agnostic instrumentation interface
// used by the dataset service.
//
// The core code depends only on Backend; concrete exporters live in
// subpackages and buffer/submit in whatever way their protocol wants.
package metrics

// Labels attach dimensions to a metric observation.
type Labels map[string]string

// Backend receives metric observations.
//
// Implementations must be safe for concurrent use; request handlers call
// IncCounter and ObserveHistogram from arbitrary goroutines.
type Backend interface {
	// IncCounter adds delta to the named counter. Non-positive deltas are
	// ignored.
	IncCounter(name string, delta float64, labels Labels)

	// ObserveHistogram records one sample of the named distribution.
	// Negative values are ignored.
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits anything buffered. Safe to call at any time.
	Flush() error

	// Close stops background work and performs one final Flush.
	// Treat Close as "call once".
	Close() error
}

// Metric names understood by the backends. Unknown names are dropped.
const (
	// UploadsTotal counts dataset ingestions. Labels: format, status.
	UploadsTotal = "dataset_uploads_total"
	// RowsTotal counts ingested rows. Labels: format.
	RowsTotal = "dataset_rows_total"
	// QueriesTotal counts dataset reads and filter queries. Labels: op.
	QueriesTotal = "dataset_queries_total"
	// InferDurationSeconds samples schema inference latency. Labels: format.
	InferDurationSeconds = "dataset_infer_duration_seconds"
	// HTTPRequestsTotal counts served HTTP requests. Labels: status.
	HTTPRequestsTotal = "http_requests_total"
	// HTTPRequestDurationSeconds samples request latency. Labels: status.
	HTTPRequestDurationSeconds = "http_request_duration_seconds"
)

// Nop is a Backend that discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}
