package telemetry

import "time"

// Severity grades an alert's urgency.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Category classifies what kind of condition an alert describes.
type Category string

const (
	CategoryWarning     Category = "warning"
	CategoryError       Category = "error"
	CategoryPerformance Category = "performance"
)

// AlertStatus is an alert's lifecycle state.
type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

// Alert is the lifecycle record of one (machineID, ruleKey) activation.
// At most one active alert exists per (machineID, ruleKey) pair at any time.
//
// The JSON field for Category is "type" — the name the dashboard protocol
// has always used for the alert category.
type Alert struct {
	ID          string      `json:"id"`
	MachineID   string      `json:"machineId"`
	MachineName string      `json:"machineName"`
	RuleKey     string      `json:"ruleKey"`
	Category    Category    `json:"type"`
	Severity    Severity    `json:"severity"`
	Message     string      `json:"message"`
	Status      AlertStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	ResolvedAt  *time.Time  `json:"resolvedAt,omitempty"`

	// Acknowledged is operator-set and independent of Status.
	Acknowledged bool `json:"acknowledged"`
}
