// Package metrics defines the server's Prometheus instrumentation and the
// /metrics exposition handler.
package metrics
