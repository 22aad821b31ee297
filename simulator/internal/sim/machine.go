package sim

import (
	"math"
	"math/rand"
)

// Machine statuses as they appear on the wire.
const (
	StatusRunning     = "running"
	StatusIdle        = "idle"
	StatusError       = "error"
	StatusMaintenance = "maintenance"
)

// Sensor value bounds. Values walk randomly inside these ranges; an error
// state pushes the temperature above them on purpose.
const (
	tempMin, tempMax   = 40.0, 85.0
	vibMin, vibMax     = 0.5, 5.0
	effMin, effMax     = 50.0, 98.0
	powerMin, powerMax = 1.0, 8.0
)

// Reading is one telemetry frame in the hub's wire format.
type Reading struct {
	Type             string  `json:"type"`
	MachineID        string  `json:"machineId"`
	Status           string  `json:"status"`
	Temperature      float64 `json:"temperature"`
	Vibration        float64 `json:"vibration"`
	Efficiency       float64 `json:"efficiency"`
	PowerConsumption float64 `json:"powerConsumption"`
	Output           int64   `json:"output"`
}

// Command is a remote instruction received from the hub.
type Command struct {
	MachineID string `json:"machineId"`
	Name      string `json:"command"`
	Timestamp int64  `json:"timestamp"`
}

// Machine is one simulated machine. Not safe for concurrent use; the
// simulator steps all machines from a single loop.
type Machine struct {
	id  string
	rng *rand.Rand

	status      string
	temperature float64
	vibration   float64
	efficiency  float64
	power       float64
	output      int64

	// emergency pins the status to error until reset_emergency arrives.
	emergency bool
}

// New creates a machine in a healthy mid-range state. The caller supplies
// the random source so runs can be reproduced.
func New(id string, rng *rand.Rand) *Machine {
	return &Machine{
		id:          id,
		rng:         rng,
		status:      StatusRunning,
		temperature: 60,
		vibration:   2.0,
		efficiency:  85,
		power:       4.0,
	}
}

// ID returns the machine's identifier.
func (m *Machine) ID() string { return m.id }

// Status returns the machine's current status.
func (m *Machine) Status() string { return m.status }

// Step advances the machine one tick and returns the resulting reading.
func (m *Machine) Step() Reading {
	m.stepStatus()

	m.temperature = m.walk(m.temperature, 1.5, tempMin, tempMax)
	if m.status == StatusError {
		// Faults run hot: push past the normal band so threshold alerts fire.
		m.temperature += 8 + m.rng.Float64()*7
	}
	m.vibration = m.walk(m.vibration, 0.3, vibMin, vibMax)
	m.efficiency = m.walk(m.efficiency, 2.0, effMin, effMax)
	m.power = m.walk(m.power, 0.5, powerMin, powerMax)

	if m.status == StatusRunning {
		m.output += 1 + m.rng.Int63n(4)
	}

	return Reading{
		Type:             "machine_data",
		MachineID:        m.id,
		Status:           m.status,
		Temperature:      round1(m.temperature),
		Vibration:        round1(m.vibration),
		Efficiency:       round1(m.efficiency),
		PowerConsumption: round1(m.power),
		Output:           m.output,
	}
}

// Apply reacts to a remote command. Unknown commands are ignored.
func (m *Machine) Apply(command string) {
	switch command {
	case "start":
		if !m.emergency {
			m.status = StatusRunning
		}
	case "stop":
		if !m.emergency {
			m.status = StatusIdle
		}
	case "emergency_stop":
		m.emergency = true
		m.status = StatusError
	case "reset_emergency":
		m.emergency = false
		m.status = StatusIdle
	case "maintenance_mode":
		if !m.emergency {
			m.status = StatusMaintenance
		}
	}
}

// stepStatus rolls for a spontaneous status change. Emergency and
// maintenance states are sticky; only commands move the machine out.
func (m *Machine) stepStatus() {
	if m.emergency || m.status == StatusMaintenance {
		return
	}
	switch r := m.rng.Float64(); {
	case r < 0.75:
		m.status = StatusRunning
	case r < 0.98:
		m.status = StatusIdle
	default:
		m.status = StatusError
	}
}

// walk moves v by up to ±step, clamped to [lo, hi].
func (m *Machine) walk(v, step, lo, hi float64) float64 {
	v += (m.rng.Float64()*2 - 1) * step
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
