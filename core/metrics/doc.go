// Package metrics defines the events emitted by the prediction endpoint and
// the sinks that record them. Sinks like the Prometheus, InfluxDB and MQTT
// implementations in infra/metrics are instantiated from configuration
// through NewMetricsSink, which returns a MultiSink automatically when
// several sinks are configured. Only aggregate request data is recorded;
// the submitted CPI series never reach a sink.
package metrics
