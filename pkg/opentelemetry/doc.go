// Package opentelemetry wires tracing, metrics, and log export through the
// OpenTelemetry SDK with OTLP gRPC exporters, plus span helpers used by the
// HTTP layer.
package opentelemetry
