// Package batch models per-query outcomes of a batch evaluation run.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of evaluating one query in a batch.
type Result struct {
	id        string
	status    ItemStatus
	traceID   string
	score     float64
	latencyMs float64
	err       error
}

// NewOK creates a successful result carrying the run's trace id and overall score.
func NewOK(id, traceID string, score, latencyMs float64) Result {
	return Result{id: id, status: StatusOK, traceID: traceID, score: score, latencyMs: latencyMs}
}

// NewError creates a failed result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the query identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// TraceID returns the pipeline trace id ("" on error).
func (r Result) TraceID() string { return r.traceID }

// Score returns the overall evaluation score (0 on error).
func (r Result) Score() float64 { return r.score }

// LatencyMs returns the pipeline latency (0 on error).
func (r Result) LatencyMs() float64 { return r.latencyMs }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
