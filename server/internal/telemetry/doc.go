// Package telemetry defines the domain types shared across the FactoryPulse
// server: machine snapshots, alerts, and operator commands. The JSON shape of
// these types is the dashboard wire format — they are marshalled directly
// into WebSocket and REST payloads.
package telemetry
