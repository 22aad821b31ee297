package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ReadingsIngested counts machine readings accepted into the core.
	ReadingsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factorypulse_readings_ingested_total",
		Help: "Machine readings accepted and applied to the snapshot table.",
	})

	// ReadingsDropped counts inbound frames dropped before ingestion,
	// labelled by reason (malformed, unknown_type).
	ReadingsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factorypulse_readings_dropped_total",
		Help: "Inbound frames dropped before ingestion.",
	}, []string{"reason"})

	// UnknownStatuses counts readings carrying a status outside the known
	// set. Accepted anyway; counted for observability.
	UnknownStatuses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factorypulse_unknown_statuses_total",
		Help: "Readings with a status outside the known set.",
	})

	// AlertsCreated counts alert creations, labelled by rule key.
	AlertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factorypulse_alerts_created_total",
		Help: "Alerts created by the rule engine.",
	}, []string{"rule"})

	// AlertsResolved counts alert resolutions, labelled by rule key.
	AlertsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factorypulse_alerts_resolved_total",
		Help: "Alerts resolved by the rule engine.",
	}, []string{"rule"})

	// AlertsSuppressed counts creations suppressed by the cooldown window.
	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factorypulse_alerts_suppressed_total",
		Help: "Alert creations suppressed by the cooldown window.",
	}, []string{"rule"})

	// CommandsRouted counts commands successfully forwarded to a machine.
	CommandsRouted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factorypulse_commands_routed_total",
		Help: "Operator commands forwarded to a connected machine.",
	})

	// CommandsFailed counts commands that could not be routed.
	CommandsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factorypulse_commands_failed_total",
		Help: "Operator commands that failed to route (machine not connected).",
	})

	// ObserversConnected tracks the number of joined dashboard observers.
	ObserversConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factorypulse_observers_connected",
		Help: "Dashboard observers currently joined to the broadcaster.",
	})

	// MachinesConnected tracks machines with a live command channel.
	MachinesConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factorypulse_machines_connected",
		Help: "Machines with a live inbound command channel.",
	})

	// ActiveAlerts tracks the number of currently active alerts.
	ActiveAlerts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factorypulse_active_alerts",
		Help: "Alerts currently in the active state.",
	})
)

// Handler returns the Prometheus exposition handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
