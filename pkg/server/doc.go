// Package server provides server lifecycle and graceful shutdown helpers.
//
// Use this package to coordinate signal handling, shutdown deadlines, and ordered
// resource cleanup for HTTP service processes. Background components such as
// worker pools register shutdown hooks that run after the HTTP listener stops
// and before telemetry flushes, so their final measurements are still exported.
package server
