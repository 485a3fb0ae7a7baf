package metrics

import (
	"time"

	coremetrics "github.com/cpipredict/cpi-predictor/core/metrics"
	infmqtt "github.com/cpipredict/cpi-predictor/infra/mqtt"
)

type jsonPublisher interface {
	PublishJSON(v any) error
	Close() error
}

// MQTTSink publishes prediction events as JSON messages.
type MQTTSink struct {
	pub jsonPublisher
}

// NewMQTTSink connects to the broker described by cfg.
func NewMQTTSink(cfg infmqtt.Config) (*MQTTSink, error) {
	pub, err := infmqtt.NewPublisher(cfg)
	if err != nil {
		return nil, err
	}
	return &MQTTSink{pub: pub}, nil
}

type predictionMessage struct {
	Event      string  `json:"event"`
	ID         string  `json:"id"`
	Points     int     `json:"points"`
	Degree     int     `json:"degree"`
	Prediction float64 `json:"prediction"`
	Clamped    bool    `json:"clamped"`
	DurationMS float64 `json:"duration_ms"`
	Timestamp  int64   `json:"timestamp"`
}

type rejectionMessage struct {
	Event     string `json:"event"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// RecordPrediction publishes ev.
func (s *MQTTSink) RecordPrediction(ev coremetrics.PredictionEvent) error {
	return s.pub.PublishJSON(predictionMessage{
		Event:      "prediction",
		ID:         ev.ID,
		Points:     ev.Points,
		Degree:     ev.Degree,
		Prediction: ev.Prediction,
		Clamped:    ev.Clamped,
		DurationMS: round3(float64(ev.Duration) / float64(time.Millisecond)),
		Timestamp:  ev.Time.UnixMilli(),
	})
}

// RecordRejection publishes ev.
func (s *MQTTSink) RecordRejection(ev coremetrics.RejectionEvent) error {
	return s.pub.PublishJSON(rejectionMessage{
		Event:     "rejection",
		Reason:    string(ev.Reason),
		Timestamp: ev.Time.UnixMilli(),
	})
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error { return s.pub.Close() }
