package alerts

import (
	"github.com/factorypulse/factorypulse/server/internal/telemetry"
)

// Rule thresholds. Trigger and clear differ where a hysteresis band exists
// so a value oscillating inside the band cannot flap the alert.
const (
	tempHighTrigger = 80.0
	tempHighClear   = 75.0

	vibrationTrigger = 4.0
	vibrationClear   = 3.2

	lowEfficiencyTrigger = 70.0
)

// Rule is one threshold rule. Trigger fires the alert; Clear resolves it.
// A nil Clear means the rule has no hysteresis band and clears as soon as
// Trigger is false. When both Trigger and Clear are false the snapshot is in
// the hysteresis gap and an active alert stays active.
type Rule struct {
	Key      string
	Severity telemetry.Severity
	Category telemetry.Category
	Message  string
	Trigger  func(telemetry.MachineSnapshot) bool
	Clear    func(telemetry.MachineSnapshot) bool
}

// clears reports whether the rule's clear condition holds for snap.
func (r Rule) clears(snap telemetry.MachineSnapshot) bool {
	if r.Clear != nil {
		return r.Clear(snap)
	}
	return !r.Trigger(snap)
}

// Rules is the fixed rule table. Evaluation order is table order, which
// fixes the ordering of emitted events for any given snapshot.
//
// A nil sensor field (absent from the reading) never triggers a rule. For
// rules with an explicit Clear it never clears one either — the active alert
// rides out the cycle. Rules without a Clear resolve on the negated trigger,
// missing field included.
var Rules = []Rule{
	{
		Key:      "temp_high",
		Severity: telemetry.SeverityHigh,
		Category: telemetry.CategoryWarning,
		Message:  "High temperature detected",
		Trigger: func(s telemetry.MachineSnapshot) bool {
			return s.Temperature != nil && *s.Temperature >= tempHighTrigger
		},
		Clear: func(s telemetry.MachineSnapshot) bool {
			return s.Temperature != nil && *s.Temperature <= tempHighClear
		},
	},
	{
		Key:      "vibration_high",
		Severity: telemetry.SeverityMedium,
		Category: telemetry.CategoryWarning,
		Message:  "Excessive vibration detected",
		Trigger: func(s telemetry.MachineSnapshot) bool {
			return s.Vibration != nil && *s.Vibration >= vibrationTrigger
		},
		Clear: func(s telemetry.MachineSnapshot) bool {
			return s.Vibration != nil && *s.Vibration <= vibrationClear
		},
	},
	{
		Key:      "machine_error",
		Severity: telemetry.SeverityCritical,
		Category: telemetry.CategoryError,
		Message:  "Machine error state",
		Trigger: func(s telemetry.MachineSnapshot) bool {
			return s.Status == telemetry.StatusError
		},
		// No hysteresis band: clears whenever the status is anything else.
	},
	{
		// Intentionally no hysteresis band, unlike temp/vibration. The
		// original rule set shipped this asymmetry and operators have
		// tuned around it.
		Key:      "low_efficiency",
		Severity: telemetry.SeverityMedium,
		Category: telemetry.CategoryPerformance,
		Message:  "Low efficiency detected",
		Trigger: func(s telemetry.MachineSnapshot) bool {
			return s.Efficiency != nil && *s.Efficiency < lowEfficiencyTrigger &&
				s.Status == telemetry.StatusRunning
		},
	},
}
