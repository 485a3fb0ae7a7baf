// Package predict exposes the CPI predictor over HTTP. It decodes and
// validates the request, coerces numeric strings, runs the prediction
// engine and reports the outcome on the event bus.
package predict
