// Package api implements the REST surface under /api/v1.
//
//	GET  /api/v1/health                 — server status, connection counts, uptime
//	GET  /api/v1/machines               — all machine snapshots
//	GET  /api/v1/machines/{id}          — single machine; 404 if never reported
//	POST /api/v1/machines/{id}/command  — route a command; 404 if not connected
//	GET  /api/v1/alerts?limit=N         — recent alerts, oldest first
//
// The handlers are thin: all state lives in the hub.
package api
