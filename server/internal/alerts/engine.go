package alerts

import (
	"fmt"
	"time"

	"github.com/factorypulse/factorypulse/server/internal/store"
	"github.com/factorypulse/factorypulse/server/internal/telemetry"
)

// EventKind distinguishes the two alert lifecycle transitions.
type EventKind int

const (
	// Created: a rule transitioned false→true with no active alert for its
	// key and the cooldown elapsed.
	Created EventKind = iota
	// Resolved: a rule's clear condition became true while an alert was
	// active for its key.
	Resolved
)

// Event is one alert lifecycle transition produced by Evaluate.
type Event struct {
	Kind  EventKind
	Alert telemetry.Alert
}

// Engine evaluates the fixed rule table against machine snapshots and
// maintains alert lifecycle state in the alert log.
//
// Evaluate is deterministic: the same snapshot against the same prior log
// state produces the same event sequence. The only time source is the single
// now passed in; alert IDs are derived from it, not drawn from a generator.
//
// The engine performs no I/O and holds no locks of its own — callers
// serialize Evaluate with every other log mutation (the hub's task loop).
type Engine struct {
	log      *store.AlertLog
	rules    []Rule
	cooldown time.Duration

	// OnSuppress, when non-nil, is called for each creation suppressed by
	// the cooldown window. Used for metrics; never affects evaluation.
	OnSuppress func(machineID, ruleKey string)
}

// New creates an Engine that records alert lifecycle state in log.
// cooldown is the minimum gap between successive creations per
// (machine, rule) key.
func New(log *store.AlertLog, cooldown time.Duration) *Engine {
	return &Engine{log: log, rules: Rules, cooldown: cooldown}
}

// Evaluate runs every rule against snap, in table order, and returns the
// lifecycle events this snapshot caused. now is captured once by the caller
// and used for every timestamp and ID in the evaluation.
func (e *Engine) Evaluate(snap telemetry.MachineSnapshot, now time.Time) []Event {
	var events []Event
	for _, rule := range e.rules {
		switch {
		case rule.Trigger(snap):
			if ev, ok := e.upsert(snap, rule, now); ok {
				events = append(events, ev)
			}
		case rule.clears(snap):
			if a, ok := e.log.Resolve(snap.ID, rule.Key, now); ok {
				events = append(events, Event{Kind: Resolved, Alert: a})
			}
		default:
			// Hysteresis gap: trigger false, clear false. No action — an
			// active alert stays active.
		}
	}
	return events
}

// upsert creates a new active alert for (snap.ID, rule.Key) unless one is
// already active or the cooldown since the key's last creation has not
// elapsed.
func (e *Engine) upsert(snap telemetry.MachineSnapshot, rule Rule, now time.Time) (Event, bool) {
	if _, ok := e.log.FindActive(snap.ID, rule.Key); ok {
		return Event{}, false
	}

	if last, ok := e.log.FindMostRecent(snap.ID, rule.Key); ok {
		if now.Sub(last.CreatedAt) < e.cooldown {
			if e.OnSuppress != nil {
				e.OnSuppress(snap.ID, rule.Key)
			}
			return Event{}, false
		}
	}

	a := telemetry.Alert{
		ID:          alertID(now, snap.ID, rule.Key),
		MachineID:   snap.ID,
		MachineName: snap.Name,
		RuleKey:     rule.Key,
		Category:    rule.Category,
		Severity:    rule.Severity,
		Message:     rule.Message,
		Status:      telemetry.AlertActive,
		CreatedAt:   now,
	}
	e.log.Append(a)
	return Event{Kind: Created, Alert: a}, true
}

// alertID builds a unique, time-ordered alert ID. Uniqueness holds because
// at most one alert per (machine, rule) key can be created at any instant,
// and successive creations for a key are separated by the cooldown.
func alertID(now time.Time, machineID, ruleKey string) string {
	return fmt.Sprintf("A-%d-%s-%s", now.UnixMilli(), machineID, ruleKey)
}
