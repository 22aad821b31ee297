package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/factorypulse/factorypulse/server/internal/config"
	"github.com/factorypulse/factorypulse/server/internal/telemetry"
)

func TestDecode_Reading(t *testing.T) {
	raw := []byte(`{"type":"machine_data","machineId":"M001","status":"running",
		"temperature":72.4,"vibration":2.1,"efficiency":88,"powerConsumption":4.2,"output":120}`)

	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	r, ok := msg.(Reading)
	if !ok {
		t.Fatalf("Decode: got %T, want Reading", msg)
	}
	if r.MachineID != "M001" {
		t.Errorf("MachineID: got %q, want M001", r.MachineID)
	}
	if r.Status != telemetry.StatusRunning {
		t.Errorf("Status: got %q, want running", r.Status)
	}
	if r.Temperature == nil || *r.Temperature != 72.4 {
		t.Errorf("Temperature: got %v, want 72.4", r.Temperature)
	}
	if r.Output != 120 {
		t.Errorf("Output: got %d, want 120", r.Output)
	}
}

func TestDecode_ReadingMissingNumericFields(t *testing.T) {
	raw := []byte(`{"type":"machine_data","machineId":"M002","status":"idle"}`)

	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	r := msg.(Reading)
	if r.Temperature != nil || r.Vibration != nil || r.Efficiency != nil {
		t.Errorf("missing sensor fields should decode to nil, got %+v", r)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type": "machine_data", "machineId":`))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err: got %v, want ErrMalformed", err)
	}
}

func TestDecode_ReadingWithoutID(t *testing.T) {
	_, err := Decode([]byte(`{"type":"machine_data","status":"running"}`))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err: got %v, want ErrMalformed", err)
	}
}

func TestDecode_UnknownType(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"firmware_hello","machineId":"M001"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	u, ok := msg.(Unknown)
	if !ok {
		t.Fatalf("Decode: got %T, want Unknown", msg)
	}
	if u.Type != "firmware_hello" {
		t.Errorf("Type: got %q, want firmware_hello", u.Type)
	}
}

func TestDecode_Command(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"machine_command","machineId":"M003","command":"stop"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	c := msg.(CommandRequest)
	if c.MachineID != "M003" || c.Command != "stop" {
		t.Errorf("got %+v", c)
	}
}

func TestDecode_CommandWithoutCommand(t *testing.T) {
	_, err := Decode([]byte(`{"type":"machine_command","machineId":"M003"}`))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err: got %v, want ErrMalformed", err)
	}
}

func TestDecode_Ack(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"acknowledge_alert","alertId":"A-1"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	a := msg.(AckRequest)
	if a.AlertID != "A-1" {
		t.Errorf("AlertID: got %q, want A-1", a.AlertID)
	}
}

func TestNormalize_DirectoryLookup(t *testing.T) {
	dir := config.NewDirectory(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snap := Normalize(Reading{
		MachineID:   "M001",
		Status:      telemetry.StatusRunning,
		Temperature: telemetry.Float(71.0),
		Efficiency:  telemetry.Float(90),
	}, dir, now)

	if snap.Name != "CNC Mill Alpha" {
		t.Errorf("Name: got %q, want CNC Mill Alpha", snap.Name)
	}
	if snap.Location != "Floor A - Zone 1" {
		t.Errorf("Location: got %q", snap.Location)
	}
	if !snap.LastUpdated.Equal(now) {
		t.Errorf("LastUpdated: got %v, want %v", snap.LastUpdated, now)
	}
	if snap.CycleTime <= 0 {
		t.Errorf("CycleTime: got %v, want > 0", snap.CycleTime)
	}
}

func TestNormalize_UnknownStatusPassesThrough(t *testing.T) {
	dir := config.NewDirectory(nil)
	snap := Normalize(Reading{MachineID: "M001", Status: "degraded"}, dir, time.Now())

	if snap.Status != "degraded" {
		t.Errorf("Status: got %q, want degraded", snap.Status)
	}
	if snap.Status.Known() {
		t.Error("Known(): got true for unrecognized status")
	}
}

func TestNormalize_IsDeterministic(t *testing.T) {
	dir := config.NewDirectory(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := Reading{MachineID: "M004", Status: telemetry.StatusIdle, Efficiency: telemetry.Float(75)}

	a := Normalize(r, dir, now)
	b := Normalize(r, dir, now)
	if a.CycleTime != b.CycleTime || a.Name != b.Name || !a.LastUpdated.Equal(b.LastUpdated) {
		t.Errorf("Normalize not deterministic: %+v vs %+v", a, b)
	}
}
