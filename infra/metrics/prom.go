package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/cpipredict/cpi-predictor/core/metrics"
)

// PromSink records prediction events in Prometheus metrics.
type PromSink struct {
	predictions *prometheus.CounterVec
	duration    prometheus.Histogram
	values      prometheus.Histogram
	rejections  *prometheus.CounterVec
}

// NewPromSink registers prediction metrics on the default Prometheus registerer.
// The Prometheus server should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	predictions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cpi_predictions_total",
		Help: "Total number of successful CPI predictions",
	}, []string{"degree", "clamped"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cpi_prediction_duration_seconds",
		Help:    "Time spent fitting and rendering a prediction",
		Buckets: prometheus.DefBuckets,
	}))
	if err != nil {
		return nil, err
	}
	values, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cpi_prediction_value",
		Help:    "Distribution of predicted CPI values",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	}))
	if err != nil {
		return nil, err
	}
	rejections, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cpi_rejections_total",
		Help: "Total number of rejected prediction requests",
	}, []string{"reason"}))
	if err != nil {
		return nil, err
	}
	return &PromSink{predictions: predictions, duration: duration, values: values, rejections: rejections}, nil
}

// register returns the already registered collector when an identical one
// exists, so several sinks can share the default registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// RecordPrediction updates the counters and histograms for ev.
func (s *PromSink) RecordPrediction(ev coremetrics.PredictionEvent) error {
	s.predictions.WithLabelValues(strconv.Itoa(ev.Degree), strconv.FormatBool(ev.Clamped)).Inc()
	s.duration.Observe(ev.Duration.Seconds())
	s.values.Observe(ev.Prediction)
	return nil
}

// RecordRejection increments the rejection counter for the reason.
func (s *PromSink) RecordRejection(ev coremetrics.RejectionEvent) error {
	s.rejections.WithLabelValues(string(ev.Reason)).Inc()
	return nil
}
