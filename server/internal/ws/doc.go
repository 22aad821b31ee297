// Package ws exposes the hub over two WebSocket endpoints.
//
//	/ws/machines   — machines stream telemetry frames in; routed commands
//	                 flow back on the same connection
//	/ws/dashboard  — dashboards receive state broadcasts; command requests
//	                 and alert acknowledgements flow in
//
// Both handlers use the same pump shape: a read loop that feeds raw frames
// to the hub, and a write goroutine that drains an outgoing buffer and keeps
// the connection alive with ping frames.
package ws
