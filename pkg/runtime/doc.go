// Package runtime provides panic recovery helpers for goroutines and HTTP
// handlers, with optional metric counters and span events for every
// recovered panic.
package runtime
