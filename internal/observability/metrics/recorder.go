// Package metrics provides custom Prometheus metrics for the wildlife-go service.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Provider clients and the resolution service depend on this abstraction
// rather than on concrete collectors.
type Recorder interface {
	// RecordOperation records an operation with its status, e.g. ("taxa_get", "success").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its category.
	RecordError(operation, errorType string)
}

// NoOpRecorder is a no-op implementation of the Recorder interface.
type NoOpRecorder struct{}

// RecordOperation does nothing.
func (NoOpRecorder) RecordOperation(_, _ string) {}

// RecordDuration does nothing.
func (NoOpRecorder) RecordDuration(_ string, _ float64) {}

// RecordError does nothing.
func (NoOpRecorder) RecordError(_, _ string) {}

// OrNoOp returns r, or a NoOpRecorder when r is nil.
func OrNoOp(r Recorder) Recorder {
	if r == nil {
		return NoOpRecorder{}
	}
	return r
}
