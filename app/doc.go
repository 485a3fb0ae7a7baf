// Package app assembles the CPI predictor service from its configuration.
package app
