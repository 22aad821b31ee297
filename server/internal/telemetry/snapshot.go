package telemetry

import "time"

// Status is a machine's reported operating state.
type Status string

// The four statuses machines are known to report. Newer firmware may report
// values outside this set; those are stored and broadcast as-is.
const (
	StatusRunning     Status = "running"
	StatusIdle        Status = "idle"
	StatusError       Status = "error"
	StatusMaintenance Status = "maintenance"
)

// Known reports whether s is one of the enumerated machine statuses.
func (s Status) Known() bool {
	switch s {
	case StatusRunning, StatusIdle, StatusError, StatusMaintenance:
		return true
	}
	return false
}

// MachineSnapshot is the latest known state of one machine. Exactly one
// snapshot exists per machine ID; a newer snapshot always replaces the older
// one wholesale (last-write-wins, no merge).
//
// Sensor fields are pointers because a reading may omit any of them. A nil
// field means the value was absent this cycle — rules that depend on it
// neither trigger nor clear.
type MachineSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`

	Status Status `json:"status"`

	Efficiency       *float64 `json:"efficiency,omitempty"`       // percent, 0–100
	Temperature      *float64 `json:"temperature,omitempty"`      // °C
	Vibration        *float64 `json:"vibration,omitempty"`        // amplitude, ≥ 0
	PowerConsumption *float64 `json:"powerConsumption,omitempty"` // kW
	Output           int64    `json:"output"`                     // cumulative unit count

	// CycleTime is a derived estimate in minutes, computed from efficiency
	// at ingest time. Zero when efficiency is absent.
	CycleTime float64 `json:"cycleTime,omitempty"`

	LastUpdated time.Time `json:"lastUpdated"`
}

// Float returns a pointer to v. Convenience for building snapshots and
// readings whose sensor fields are optional.
func Float(v float64) *float64 { return &v }
