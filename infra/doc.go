// Package infra holds the adapters behind the core interfaces: the zerolog
// logger, the MQTT publisher and the Prometheus, InfluxDB and MQTT metrics
// sinks. Core packages never import infra.
package infra
