// Package metrics provides a thread-safe factory for creating and recording
// OpenTelemetry instruments with lazy initialization and a fluent builder API.
package metrics
