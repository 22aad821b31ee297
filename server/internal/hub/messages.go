package hub

import (
	"encoding/json"

	"github.com/factorypulse/factorypulse/server/internal/telemetry"
)

// Dashboard message envelope types.
const (
	msgInitialData   = "initial_data"
	msgMachineUpdate = "machine_update"
	msgAlertsUpdate  = "alerts_update"
	msgCommandError  = "command_error"
)

// initialAlertCount is how many recent alerts a joining observer receives;
// subsequent alerts_update messages carry up to the full store.
const initialAlertCount = 10

// envelope is the JSON wrapper on every dashboard message.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// initialData is the full-state sync sent to a joining observer.
type initialData struct {
	Machines []telemetry.MachineSnapshot `json:"machines"`
	Alerts   []telemetry.Alert           `json:"alerts"`
	KPIs     []KPI                       `json:"kpis"`
}

// commandError is the payload of a command_error message, sent only to the
// observer whose command failed to route.
type commandError struct {
	MachineID string `json:"machineId"`
	Message   string `json:"message"`
}

// KPI is one aggregate figure shown on the dashboard header.
type KPI struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Trend  string  `json:"trend"`
	Target float64 `json:"target,omitempty"`
}

// computeKPIs derives dashboard aggregates from the current snapshots.
// Purely a function of its input — no clock, no randomness.
func computeKPIs(machines []telemetry.MachineSnapshot) []KPI {
	var (
		running     int
		effSum      float64
		effCount    int
		totalOutput int64
	)
	for _, m := range machines {
		if m.Status == telemetry.StatusRunning {
			running++
			if m.Efficiency != nil {
				effSum += *m.Efficiency
				effCount++
			}
		}
		totalOutput += m.Output
	}

	avgEff := 0.0
	if effCount > 0 {
		avgEff = effSum / float64(effCount)
	}
	effTrend := "down"
	if avgEff > 85 {
		effTrend = "up"
	}

	return []KPI{
		{Name: "Overall Efficiency", Value: avgEff, Unit: "%", Trend: effTrend, Target: 90},
		{Name: "Active Machines", Value: float64(running), Unit: "machines", Trend: "stable"},
		{Name: "Total Output", Value: float64(totalOutput), Unit: "units", Trend: "up"},
	}
}

// marshalEnvelope wraps data in the dashboard envelope and marshals it.
// The payload types are all marshal-safe; an error here is a programming
// bug, so it surfaces as nil and the caller skips the broadcast.
func marshalEnvelope(msgType string, data any) []byte {
	b, err := json.Marshal(envelope{Type: msgType, Data: data})
	if err != nil {
		return nil
	}
	return b
}
