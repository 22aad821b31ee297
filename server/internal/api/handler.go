package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/factorypulse/factorypulse/server/internal/hub"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads state from the hub and returns JSON responses.
type Handler struct {
	hub           *hub.Hub
	machinesKnown int
	mux           *http.ServeMux
}

// New creates a Handler wired to the given hub and registers all routes.
// machinesKnown is the size of the configured machine directory.
func New(h *hub.Hub, machinesKnown int) http.Handler {
	a := &Handler{hub: h, machinesKnown: machinesKnown, mux: http.NewServeMux()}

	a.mux.HandleFunc("/api/v1/health", a.health)
	a.mux.HandleFunc("/api/v1/machines", a.listMachines)
	a.mux.HandleFunc("/api/v1/machines/", a.machineSubtree) // {id} and {id}/command
	a.mux.HandleFunc("/api/v1/alerts", a.alerts)

	return a
}

func (a *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — server status and connection counts.
func (a *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jsonResp(w, http.StatusOK, HealthResponse{
		Status:            "running",
		MachinesConnected: a.hub.MachineConnCount(),
		MachinesKnown:     a.machinesKnown,
		Observers:         a.hub.ObserverCount(),
		ActiveAlerts:      a.hub.ActiveAlertCount(),
		UptimeSeconds:     int64(time.Since(a.hub.StartedAt()).Seconds()),
	})
}

// listMachines returns GET /api/v1/machines — every machine snapshot, sorted
// by machine ID.
func (a *Handler) listMachines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, a.hub.Snapshots())
}

// machineSubtree dispatches /api/v1/machines/{id} and
// /api/v1/machines/{id}/command.
func (a *Handler) machineSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/machines/")
	if rest == "" {
		a.listMachines(w, r)
		return
	}

	if id, ok := strings.CutSuffix(rest, "/command"); ok && id != "" && !strings.Contains(id, "/") {
		a.command(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	a.getMachine(w, r, rest)
}

// getMachine returns GET /api/v1/machines/{id} — a single machine snapshot.
func (a *Handler) getMachine(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, ok := a.hub.Snapshot(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "machine not found")
		return
	}
	jsonResp(w, http.StatusOK, snap)
}

// command handles POST /api/v1/machines/{id}/command — routes an operator
// command to the machine's live connection.
func (a *Handler) command(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Command == "" {
		jsonErr(w, http.StatusBadRequest, "body must be JSON with a command field")
		return
	}

	switch err := a.hub.RouteCommand(id, req.Command); {
	case err == nil:
		jsonResp(w, http.StatusOK, CommandResponse{
			Status:    "routed",
			MachineID: id,
			Command:   req.Command,
		})
	case errors.Is(err, hub.ErrUnknownCommand):
		jsonErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, hub.ErrNotConnected):
		jsonErr(w, http.StatusNotFound, "machine not connected")
	default:
		jsonErr(w, http.StatusInternalServerError, err.Error())
	}
}

// alerts returns GET /api/v1/alerts — recent alerts, oldest first. The limit
// query parameter caps the count; it defaults to the full retained window.
func (a *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			jsonErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	jsonResp(w, http.StatusOK, a.hub.RecentAlerts(limit))
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
