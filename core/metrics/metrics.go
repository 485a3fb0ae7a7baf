package metrics

import "time"

// Event is anything carried from the request path to the sinks.
type Event interface {
	Kind() string
}

// PredictionEvent describes one successful prediction.
type PredictionEvent struct {
	ID         string
	Points     int
	Degree     int
	Prediction float64
	Clamped    bool
	Duration   time.Duration
	Time       time.Time
}

// RejectionReason classifies a request refused before prediction.
type RejectionReason string

const (
	ReasonMissing    RejectionReason = "missing"
	ReasonMismatch   RejectionReason = "length_mismatch"
	ReasonNonNumeric RejectionReason = "non_numeric"
	ReasonMalformed  RejectionReason = "malformed_body"
	ReasonDegenerate RejectionReason = "degenerate_fit"
)

// RejectionEvent records a refused request.
type RejectionEvent struct {
	Reason RejectionReason
	Time   time.Time
}

func (PredictionEvent) Kind() string { return "prediction" }
func (RejectionEvent) Kind() string  { return "rejection" }

// MetricsSink records prediction results for observability purposes.
type MetricsSink interface {
	RecordPrediction(ev PredictionEvent) error
}

// RejectionRecorder records refused requests.
type RejectionRecorder interface {
	RecordRejection(ev RejectionEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordPrediction(PredictionEvent) error { return nil }
func (NopSink) RecordRejection(RejectionEvent) error   { return nil }
