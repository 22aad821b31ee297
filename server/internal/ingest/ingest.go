package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/factorypulse/factorypulse/server/internal/config"
	"github.com/factorypulse/factorypulse/server/internal/telemetry"
)

// ErrMalformed marks an inbound frame that cannot be used: unparseable JSON,
// a missing machine identifier, or a non-finite numeric field. Callers log
// and drop — no retry, never fatal.
var ErrMalformed = errors.New("malformed message")

// Message is one decoded inbound frame. The concrete type is one of Reading,
// CommandRequest, AckRequest, or Unknown.
type Message interface{ isMessage() }

// Reading is a machine telemetry reading (type "machine_data").
// Sensor fields are nil when absent from the frame.
type Reading struct {
	MachineID        string
	Status           telemetry.Status
	Efficiency       *float64
	Temperature      *float64
	Vibration        *float64
	PowerConsumption *float64
	Output           int64
}

// CommandRequest is an observer's request to command a machine
// (type "machine_command").
type CommandRequest struct {
	MachineID string
	Command   string
}

// AckRequest is an observer's request to acknowledge an alert
// (type "acknowledge_alert").
type AckRequest struct {
	AlertID string
}

// Unknown is a syntactically valid frame whose type is not recognized.
// Unknown frames are dropped by callers, never treated as errors.
type Unknown struct {
	Type string
}

func (Reading) isMessage()        {}
func (CommandRequest) isMessage() {}
func (AckRequest) isMessage()     {}
func (Unknown) isMessage()        {}

// frame is the superset wire shape all inbound message types share.
type frame struct {
	Type             string   `json:"type"`
	MachineID        string   `json:"machineId"`
	Command          string   `json:"command"`
	AlertID          string   `json:"alertId"`
	Status           string   `json:"status"`
	Efficiency       *float64 `json:"efficiency"`
	Temperature      *float64 `json:"temperature"`
	Vibration        *float64 `json:"vibration"`
	PowerConsumption *float64 `json:"powerConsumption"`
	Output           *int64   `json:"output"`
}

// Decode parses one raw inbound frame into a typed Message.
//
// It returns ErrMalformed for unparseable JSON, and for readings that lack a
// machine identifier or carry non-finite numbers. A recognized type with the
// fields it needs always decodes; anything else comes back as Unknown so the
// caller can drop it without treating it as a failure.
func Decode(raw []byte) (Message, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch f.Type {
	case "machine_data":
		return decodeReading(f)

	case "machine_command":
		if f.MachineID == "" {
			return nil, fmt.Errorf("%w: machine_command without machineId", ErrMalformed)
		}
		if f.Command == "" {
			return nil, fmt.Errorf("%w: machine_command without command", ErrMalformed)
		}
		return CommandRequest{MachineID: f.MachineID, Command: f.Command}, nil

	case "acknowledge_alert":
		if f.AlertID == "" {
			return nil, fmt.Errorf("%w: acknowledge_alert without alertId", ErrMalformed)
		}
		return AckRequest{AlertID: f.AlertID}, nil

	default:
		return Unknown{Type: f.Type}, nil
	}
}

func decodeReading(f frame) (Message, error) {
	if f.MachineID == "" {
		return nil, fmt.Errorf("%w: reading without machineId", ErrMalformed)
	}
	for name, v := range map[string]*float64{
		"efficiency":       f.Efficiency,
		"temperature":      f.Temperature,
		"vibration":        f.Vibration,
		"powerConsumption": f.PowerConsumption,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return nil, fmt.Errorf("%w: %s is not finite", ErrMalformed, name)
		}
	}

	r := Reading{
		MachineID:        f.MachineID,
		Status:           telemetry.Status(f.Status),
		Efficiency:       f.Efficiency,
		Temperature:      f.Temperature,
		Vibration:        f.Vibration,
		PowerConsumption: f.PowerConsumption,
	}
	if f.Output != nil {
		r.Output = *f.Output
	}
	return r, nil
}

// Normalize turns a decoded reading into the canonical snapshot for its
// machine, resolving display metadata through the directory. It is a pure
// transform: now is the single timestamp the snapshot carries.
//
// Unknown statuses pass through unchanged — rejecting them would break
// forward-compatibility with newer machine firmware. Callers that care can
// check Status.Known() for observability.
func Normalize(r Reading, dir *config.Directory, now time.Time) telemetry.MachineSnapshot {
	info := dir.Lookup(r.MachineID)
	snap := telemetry.MachineSnapshot{
		ID:               r.MachineID,
		Name:             info.Name,
		Type:             info.Type,
		Location:         info.Location,
		Status:           r.Status,
		Efficiency:       r.Efficiency,
		Temperature:      r.Temperature,
		Vibration:        r.Vibration,
		PowerConsumption: r.PowerConsumption,
		Output:           r.Output,
		LastUpdated:      now,
	}
	if r.Efficiency != nil {
		snap.CycleTime = cycleTime(*r.Efficiency)
	}
	return snap
}

// cycleTime estimates minutes per cycle from efficiency. Higher efficiency,
// shorter cycles; clamped to a plausible band.
func cycleTime(efficiency float64) float64 {
	ct := 8.0 - efficiency*0.06
	if ct < 2.0 {
		ct = 2.0
	}
	if ct > 7.0 {
		ct = 7.0
	}
	return ct
}
