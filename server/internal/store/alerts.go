package store

import (
	"sync"
	"time"

	"github.com/factorypulse/factorypulse/server/internal/telemetry"
)

// AlertLog is a bounded, insertion-ordered collection of alert records.
// Appends past the size cap evict the oldest entries; age-based eviction
// runs separately on the hub's timer.
//
// Methods return copies — callers never see the log's own records.
type AlertLog struct {
	mu      sync.RWMutex
	alerts  []telemetry.Alert
	maxSize int
}

// NewAlertLog creates an AlertLog capped at maxSize entries.
func NewAlertLog(maxSize int) *AlertLog {
	return &AlertLog{maxSize: maxSize}
}

// Append adds alert to the end of the log. If the log would exceed its cap,
// the oldest entries are evicted until the cap holds.
func (l *AlertLog) Append(alert telemetry.Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts = append(l.alerts, alert)
	if n := len(l.alerts) - l.maxSize; n > 0 {
		l.alerts = append(l.alerts[:0:0], l.alerts[n:]...)
	}
}

// FindActive returns the active alert for (machineID, ruleKey), if any.
// The uniqueness invariant guarantees at most one exists.
func (l *AlertLog) FindActive(machineID, ruleKey string) (telemetry.Alert, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.alerts {
		a := &l.alerts[i]
		if a.MachineID == machineID && a.RuleKey == ruleKey && a.Status == telemetry.AlertActive {
			return *a, true
		}
	}
	return telemetry.Alert{}, false
}

// FindMostRecent returns the most recently created alert for
// (machineID, ruleKey), active or resolved.
func (l *AlertLog) FindMostRecent(machineID, ruleKey string) (telemetry.Alert, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.alerts) - 1; i >= 0; i-- {
		a := &l.alerts[i]
		if a.MachineID == machineID && a.RuleKey == ruleKey {
			return *a, true
		}
	}
	return telemetry.Alert{}, false
}

// Resolve marks the active alert for (machineID, ruleKey) resolved at now
// and returns the updated record. Returns false if no active alert exists.
func (l *AlertLog) Resolve(machineID, ruleKey string, now time.Time) (telemetry.Alert, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.alerts {
		a := &l.alerts[i]
		if a.MachineID == machineID && a.RuleKey == ruleKey && a.Status == telemetry.AlertActive {
			a.Status = telemetry.AlertResolved
			resolved := now
			a.ResolvedAt = &resolved
			return *a, true
		}
	}
	return telemetry.Alert{}, false
}

// Acknowledge sets the acknowledged flag on the alert with the given ID.
// It is a no-op for unknown IDs and never touches Status.
func (l *AlertLog) Acknowledge(alertID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.alerts {
		if l.alerts[i].ID == alertID {
			l.alerts[i].Acknowledged = true
			return true
		}
	}
	return false
}

// EvictOlderThan removes every alert created before cutoff, regardless of
// status, and returns the number removed.
func (l *AlertLog) EvictOlderThan(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.alerts[:0]
	for _, a := range l.alerts {
		if !a.CreatedAt.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	removed := len(l.alerts) - len(kept)
	l.alerts = kept
	return removed
}

// Recent returns up to n of the most recent alerts in insertion order
// (oldest of the n first) — the shape dashboards expect.
func (l *AlertLog) Recent(n int) []telemetry.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	start := len(l.alerts) - n
	if start < 0 {
		start = 0
	}
	return append([]telemetry.Alert(nil), l.alerts[start:]...)
}

// Unacknowledged returns all alerts not yet acknowledged, in insertion order.
func (l *AlertLog) Unacknowledged() []telemetry.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []telemetry.Alert
	for _, a := range l.alerts {
		if !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out
}

// ActiveCount returns the number of alerts currently active.
func (l *AlertLog) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for i := range l.alerts {
		if l.alerts[i].Status == telemetry.AlertActive {
			n++
		}
	}
	return n
}

// Len returns the total number of alerts held.
func (l *AlertLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.alerts)
}
