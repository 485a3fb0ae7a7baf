// Package prediction forecasts a student's next-semester CPI from the
// semester-indexed history. The Predictor fits a low-order polynomial by
// least squares, clamps the one-step-ahead value to the valid score range and
// renders the history, fitted curve and prediction as a base64 PNG chart.
//
// The package holds no mutable package-level state: every call fits its own
// model and renders into its own canvas, so a single Predictor can be shared
// across goroutines.
package prediction
