// Package metrics implements the prediction metrics sinks: Prometheus
// counters and histograms, InfluxDB points and MQTT JSON messages. The
// sinks register themselves with core/metrics on import. StartEventCollector
// drains the internal event bus into a sink so slow backends never delay an
// HTTP response.
package metrics
