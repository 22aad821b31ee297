package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/factorypulse/factorypulse/server/internal/telemetry"
)

func alert(id, machineID, ruleKey string, status telemetry.AlertStatus, createdAt time.Time) telemetry.Alert {
	return telemetry.Alert{
		ID:        id,
		MachineID: machineID,
		RuleKey:   ruleKey,
		Status:    status,
		CreatedAt: createdAt,
	}
}

func TestAppend_CapEvictsOldest(t *testing.T) {
	l := NewAlertLog(50)
	base := time.Now()
	for i := 0; i < 51; i++ {
		l.Append(alert(fmt.Sprintf("A-%02d", i), "M001", "temp_high",
			telemetry.AlertResolved, base.Add(time.Duration(i)*time.Second)))
	}

	if l.Len() != 50 {
		t.Fatalf("Len: got %d, want 50", l.Len())
	}
	recent := l.Recent(50)
	if recent[0].ID != "A-01" {
		t.Errorf("oldest surviving alert: got %q, want A-01", recent[0].ID)
	}
	if recent[49].ID != "A-50" {
		t.Errorf("newest alert: got %q, want A-50", recent[49].ID)
	}
}

func TestFindActive(t *testing.T) {
	l := NewAlertLog(50)
	now := time.Now()
	l.Append(alert("A-1", "M001", "temp_high", telemetry.AlertResolved, now))
	l.Append(alert("A-2", "M001", "temp_high", telemetry.AlertActive, now))
	l.Append(alert("A-3", "M002", "temp_high", telemetry.AlertActive, now))

	a, ok := l.FindActive("M001", "temp_high")
	if !ok {
		t.Fatal("FindActive: expected alert, got none")
	}
	if a.ID != "A-2" {
		t.Errorf("ID: got %q, want A-2", a.ID)
	}

	if _, ok := l.FindActive("M001", "vibration_high"); ok {
		t.Error("FindActive for untriggered rule: got alert, want none")
	}
}

func TestFindMostRecent(t *testing.T) {
	l := NewAlertLog(50)
	base := time.Now()
	l.Append(alert("A-1", "M001", "temp_high", telemetry.AlertResolved, base))
	l.Append(alert("A-2", "M001", "temp_high", telemetry.AlertResolved, base.Add(time.Minute)))

	a, ok := l.FindMostRecent("M001", "temp_high")
	if !ok {
		t.Fatal("FindMostRecent: expected alert, got none")
	}
	if a.ID != "A-2" {
		t.Errorf("ID: got %q, want A-2", a.ID)
	}
}

func TestResolve(t *testing.T) {
	l := NewAlertLog(50)
	created := time.Now()
	l.Append(alert("A-1", "M001", "machine_error", telemetry.AlertActive, created))

	resolvedAt := created.Add(30 * time.Second)
	a, ok := l.Resolve("M001", "machine_error", resolvedAt)
	if !ok {
		t.Fatal("Resolve: expected true")
	}
	if a.Status != telemetry.AlertResolved {
		t.Errorf("Status: got %q, want resolved", a.Status)
	}
	if a.ResolvedAt == nil || !a.ResolvedAt.Equal(resolvedAt) {
		t.Errorf("ResolvedAt: got %v, want %v", a.ResolvedAt, resolvedAt)
	}

	// Second resolve is a no-op — nothing active remains.
	if _, ok := l.Resolve("M001", "machine_error", resolvedAt); ok {
		t.Error("second Resolve: got true, want false")
	}
}

func TestAcknowledge(t *testing.T) {
	l := NewAlertLog(50)
	l.Append(alert("A-1", "M001", "temp_high", telemetry.AlertActive, time.Now()))

	if !l.Acknowledge("A-1") {
		t.Fatal("Acknowledge: got false, want true")
	}
	a, _ := l.FindActive("M001", "temp_high")
	if !a.Acknowledged {
		t.Error("Acknowledged: got false, want true")
	}
	// Status is untouched by acknowledgement.
	if a.Status != telemetry.AlertActive {
		t.Errorf("Status after ack: got %q, want active", a.Status)
	}

	if l.Acknowledge("nope") {
		t.Error("Acknowledge unknown ID: got true, want false")
	}
}

func TestEvictOlderThan(t *testing.T) {
	l := NewAlertLog(50)
	base := time.Now()
	l.Append(alert("old-active", "M001", "temp_high", telemetry.AlertActive, base.Add(-25*time.Hour)))
	l.Append(alert("old-resolved", "M002", "temp_high", telemetry.AlertResolved, base.Add(-30*time.Hour)))
	l.Append(alert("fresh", "M003", "temp_high", telemetry.AlertActive, base))

	removed := l.EvictOlderThan(base.Add(-24 * time.Hour))
	if removed != 2 {
		t.Errorf("removed: got %d, want 2", removed)
	}
	if l.Len() != 1 {
		t.Errorf("Len: got %d, want 1", l.Len())
	}
	// Age-based eviction removes active alerts too.
	if _, ok := l.FindActive("M001", "temp_high"); ok {
		t.Error("old active alert survived eviction")
	}
}

func TestRecent_FewerThanN(t *testing.T) {
	l := NewAlertLog(50)
	l.Append(alert("A-1", "M001", "temp_high", telemetry.AlertActive, time.Now()))

	got := l.Recent(10)
	if len(got) != 1 {
		t.Fatalf("Recent(10): got %d alerts, want 1", len(got))
	}
}

func TestUnacknowledged(t *testing.T) {
	l := NewAlertLog(50)
	l.Append(alert("A-1", "M001", "temp_high", telemetry.AlertActive, time.Now()))
	l.Append(alert("A-2", "M002", "temp_high", telemetry.AlertActive, time.Now()))
	l.Acknowledge("A-1")

	got := l.Unacknowledged()
	if len(got) != 1 || got[0].ID != "A-2" {
		t.Errorf("Unacknowledged: got %+v, want [A-2]", got)
	}
}

func TestActiveCount(t *testing.T) {
	l := NewAlertLog(50)
	now := time.Now()
	l.Append(alert("A-1", "M001", "temp_high", telemetry.AlertActive, now))
	l.Append(alert("A-2", "M002", "temp_high", telemetry.AlertResolved, now))

	if n := l.ActiveCount(); n != 1 {
		t.Errorf("ActiveCount: got %d, want 1", n)
	}
}
