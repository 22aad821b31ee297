// Package ingest decodes raw inbound frames into typed messages and
// normalizes machine readings into canonical snapshots. Decoding and
// normalization are pure transforms — callers commit the results.
package ingest
