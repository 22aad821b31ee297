package api

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status            string `json:"status"`
	MachinesConnected int    `json:"machinesConnected"`
	MachinesKnown     int    `json:"machinesKnown"`
	Observers         int    `json:"observers"`
	ActiveAlerts      int    `json:"activeAlerts"`
	UptimeSeconds     int64  `json:"uptimeSeconds"`
}

// CommandRequest is the body of POST /api/v1/machines/{id}/command.
type CommandRequest struct {
	Command string `json:"command"`
}

// CommandResponse acknowledges a successfully routed command.
type CommandResponse struct {
	Status    string `json:"status"`
	MachineID string `json:"machineId"`
	Command   string `json:"command"`
}

type errorResponse struct {
	Error string `json:"error"`
}
