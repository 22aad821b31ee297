package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/factorypulse/factorypulse/server/internal/alerts"
	"github.com/factorypulse/factorypulse/server/internal/config"
	"github.com/factorypulse/factorypulse/server/internal/ingest"
	"github.com/factorypulse/factorypulse/server/internal/metrics"
	"github.com/factorypulse/factorypulse/server/internal/store"
	"github.com/factorypulse/factorypulse/server/internal/telemetry"
)

// Routing errors surfaced to command callers.
var (
	// ErrNotConnected: the addressed machine has no live inbound channel.
	ErrNotConnected = errors.New("machine not connected")

	// ErrUnknownCommand: the command name is outside the supported set.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrStopped: the hub's task loop has exited; no more work is accepted.
	ErrStopped = errors.New("hub stopped")
)

// taskBufSize bounds the core queue. Producers (connection readers) block
// when the core falls this far behind, which applies backpressure instead of
// growing unbounded.
const taskBufSize = 256

// MachineConn is a machine's live inbound channel, registered from the
// connection that carried the machine's reading. Send must not block: it
// queues the message or reports failure immediately.
type MachineConn interface {
	Send(msg []byte) error
}

// Hub owns all server state and processes every mutation on a single
// serialized task queue. Construct with New, start with Run; the zero value
// is not usable.
type Hub struct {
	cfg       config.AlertsConfig
	machines  *store.SnapshotTable
	alertLog  *store.AlertLog
	engine    *alerts.Engine
	directory *config.Directory

	// mu guards the two registries for cross-goroutine count reads; all
	// mutation still happens on the task loop.
	mu        sync.RWMutex
	observers map[*Observer]struct{}
	conns     map[string]MachineConn

	tasks     chan func()
	done      chan struct{}
	now       func() time.Time
	startedAt time.Time
}

// New creates a Hub with empty state.
func New(cfg config.AlertsConfig, dir *config.Directory) *Hub {
	h := &Hub{
		cfg:       cfg,
		machines:  store.NewSnapshotTable(),
		alertLog:  store.NewAlertLog(cfg.MaxAlerts),
		directory: dir,
		observers: make(map[*Observer]struct{}),
		conns:     make(map[string]MachineConn),
		tasks:     make(chan func(), taskBufSize),
		done:      make(chan struct{}),
		now:       time.Now,
		startedAt: time.Now(),
	}
	h.engine = alerts.New(h.alertLog, cfg.Cooldown)
	h.engine.OnSuppress = func(machineID, ruleKey string) {
		metrics.AlertsSuppressed.WithLabelValues(ruleKey).Inc()
		slog.Debug("alert suppressed by cooldown", "machine", machineID, "rule", ruleKey)
	}
	return h
}

// Run processes the task queue until ctx is cancelled, then releases every
// observer and machine channel. The age-based eviction sweep ticks on the
// same loop — it is just another task, never a concurrent writer.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.EvictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case task := <-h.tasks:
			task()
		case <-ticker.C:
			h.evictOld()
		}
	}
}

// enqueue queues task for the core loop. Once the loop has exited it reports
// false and discards the task, so connection readers never block against a
// stopped hub.
func (h *Hub) enqueue(task func()) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.tasks <- task:
		return true
	case <-h.done:
		return false
	}
}

// SetDirectory swaps the machine directory used to normalize future
// readings. Called on config hot-reload; applies from the next reading on.
func (h *Hub) SetDirectory(d *config.Directory) {
	h.enqueue(func() { h.directory = d })
}

// --- machine side -----------------------------------------------------------

// HandleMachineMessage enqueues one raw frame from a machine channel.
// conn may be nil for one-way transports (the MQTT bridge); readings from
// such sources update state but register no command channel.
func (h *Hub) HandleMachineMessage(conn MachineConn, raw []byte) {
	h.enqueue(func() { h.processMachineMessage(conn, raw) })
}

// MachineDisconnected removes every command-channel registration pointing at
// conn. In-flight sends to the closed connection are dropped by its pump.
func (h *Hub) MachineDisconnected(conn MachineConn) {
	h.enqueue(func() {
		h.mu.Lock()
		for id, c := range h.conns {
			if c == conn {
				delete(h.conns, id)
				slog.Info("machine channel closed", "machine", id)
			}
		}
		h.mu.Unlock()
		metrics.MachinesConnected.Set(float64(h.MachineConnCount()))
	})
}

func (h *Hub) processMachineMessage(conn MachineConn, raw []byte) {
	msg, err := ingest.Decode(raw)
	if err != nil {
		metrics.ReadingsDropped.WithLabelValues("malformed").Inc()
		slog.Warn("dropping malformed machine frame", "err", err)
		return
	}

	r, ok := msg.(ingest.Reading)
	if !ok {
		metrics.ReadingsDropped.WithLabelValues("unknown_type").Inc()
		slog.Debug("dropping non-reading machine frame", "type", fmt.Sprintf("%T", msg))
		return
	}

	// Register the command channel against the verified machine ID — always
	// the connection that carried this reading, never "any open one".
	if conn != nil {
		h.mu.Lock()
		prev := h.conns[r.MachineID]
		h.conns[r.MachineID] = conn
		h.mu.Unlock()
		if prev != conn {
			metrics.MachinesConnected.Set(float64(h.MachineConnCount()))
			slog.Info("machine channel registered", "machine", r.MachineID)
		}
	}

	h.applyReading(r)
}

// applyReading is the evaluate-and-mutate cycle: normalize, commit the
// snapshot, run the rules, fan out deltas. Runs only on the task loop.
func (h *Hub) applyReading(r ingest.Reading) {
	now := h.now()
	snap := ingest.Normalize(r, h.directory, now)

	if !snap.Status.Known() {
		metrics.UnknownStatuses.Inc()
		slog.Warn("reading carries unrecognized status — accepting as-is",
			"machine", snap.ID, "status", snap.Status)
	}

	h.machines.Put(snap)
	metrics.ReadingsIngested.Inc()

	events := h.engine.Evaluate(snap, now)
	for _, ev := range events {
		switch ev.Kind {
		case alerts.Created:
			metrics.AlertsCreated.WithLabelValues(ev.Alert.RuleKey).Inc()
			slog.Warn("alert created",
				"machine", ev.Alert.MachineID,
				"rule", ev.Alert.RuleKey,
				"severity", ev.Alert.Severity,
			)
		case alerts.Resolved:
			metrics.AlertsResolved.WithLabelValues(ev.Alert.RuleKey).Inc()
			slog.Info("alert resolved",
				"machine", ev.Alert.MachineID,
				"rule", ev.Alert.RuleKey,
			)
		}
	}
	metrics.ActiveAlerts.Set(float64(h.alertLog.ActiveCount()))

	h.broadcast(marshalEnvelope(msgMachineUpdate, snap))
	if len(events) > 0 {
		h.broadcastAlerts()
	}
}

// --- observer side ----------------------------------------------------------

// Join registers o and sends it one full-state sync. The sync and the
// registration happen in the same task, so o sees every later delta exactly
// once relative to its initial state.
func (h *Hub) Join(o *Observer) {
	h.enqueue(func() {
		h.mu.Lock()
		h.observers[o] = struct{}{}
		h.mu.Unlock()
		metrics.ObserversConnected.Set(float64(h.ObserverCount()))
		slog.Info("observer joined", "observer", o.id)

		machines := h.machines.All()
		h.trySend(o, marshalEnvelope(msgInitialData, initialData{
			Machines: machines,
			Alerts:   h.alertLog.Recent(initialAlertCount),
			KPIs:     computeKPIs(machines),
		}))
	})
}

// Leave removes o and closes its channel. Safe to call for an observer the
// hub already dropped.
func (h *Hub) Leave(o *Observer) {
	h.enqueue(func() { h.dropObserver(o) })
}

// HandleObserverMessage enqueues one raw frame from a dashboard connection.
func (h *Hub) HandleObserverMessage(o *Observer, raw []byte) {
	h.enqueue(func() {
		msg, err := ingest.Decode(raw)
		if err != nil {
			slog.Warn("dropping malformed observer frame", "observer", o.id, "err", err)
			return
		}
		switch m := msg.(type) {
		case ingest.CommandRequest:
			// Failure is surfaced to o as a command_error event; the error
			// return exists for the synchronous REST path.
			_ = h.routeCommand(o, m.MachineID, m.Command)
		case ingest.AckRequest:
			h.acknowledge(m.AlertID)
		default:
			slog.Debug("dropping unrecognized observer frame", "observer", o.id)
		}
	})
}

// RouteCommand routes a command on behalf of a caller with no observer
// channel (the REST API). It blocks until the core has processed the task,
// or returns ErrStopped if the hub shuts down first.
func (h *Hub) RouteCommand(machineID, command string) error {
	errc := make(chan error, 1)
	if !h.enqueue(func() { errc <- h.routeCommand(nil, machineID, command) }) {
		return ErrStopped
	}
	select {
	case err := <-errc:
		return err
	case <-h.done:
		return ErrStopped
	}
}

// AcknowledgeAlert acknowledges an alert on behalf of a REST caller.
// Returns false if the alert ID is unknown or the hub has stopped.
func (h *Hub) AcknowledgeAlert(alertID string) bool {
	okc := make(chan bool, 1)
	if !h.enqueue(func() { okc <- h.acknowledge(alertID) }) {
		return false
	}
	select {
	case ok := <-okc:
		return ok
	case <-h.done:
		return false
	}
}

// routeCommand forwards a command to the addressed machine's channel. On
// success it appends a pre-resolved audit alert directly to the log — the
// engine's dedup and cooldown do not apply to audit records. On failure the
// requesting observer (if any) gets a command_error event; nothing else
// changes.
func (h *Hub) routeCommand(requester *Observer, machineID, command string) error {
	if !telemetry.ValidCommand(command) {
		h.commandError(requester, machineID, fmt.Sprintf("unsupported command %q", command))
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}

	now := h.now()

	h.mu.RLock()
	conn := h.conns[machineID]
	h.mu.RUnlock()
	if conn == nil {
		metrics.CommandsFailed.Inc()
		slog.Warn("command for unconnected machine", "machine", machineID, "command", command)
		h.commandError(requester, machineID, "Machine not connected")
		return ErrNotConnected
	}

	payload, err := json.Marshal(telemetry.Command{
		MachineID: machineID,
		Name:      command,
		Timestamp: now.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	if err := conn.Send(payload); err != nil {
		// Broken channel — treat as a disconnect.
		h.mu.Lock()
		delete(h.conns, machineID)
		h.mu.Unlock()
		metrics.MachinesConnected.Set(float64(h.MachineConnCount()))
		metrics.CommandsFailed.Inc()
		slog.Warn("command send failed — dropping machine channel",
			"machine", machineID, "err", err)
		h.commandError(requester, machineID, "Machine not connected")
		return ErrNotConnected
	}

	metrics.CommandsRouted.Inc()
	slog.Info("command routed", "machine", machineID, "command", command)

	resolved := now
	h.alertLog.Append(telemetry.Alert{
		ID:          fmt.Sprintf("CMD-%d-%s", now.UnixMilli(), strings.Split(uuid.NewString(), "-")[0]),
		MachineID:   machineID,
		MachineName: h.directory.Lookup(machineID).Name,
		RuleKey:     "command_executed",
		Category:    telemetry.CategoryPerformance,
		Severity:    telemetry.SeverityLow,
		Message:     fmt.Sprintf("Remote command executed: %s", command),
		Status:      telemetry.AlertResolved,
		CreatedAt:   now,
		ResolvedAt:  &resolved,
	})
	h.broadcastAlerts()
	return nil
}

func (h *Hub) acknowledge(alertID string) bool {
	if !h.alertLog.Acknowledge(alertID) {
		slog.Debug("acknowledge for unknown alert", "alert", alertID)
		return false
	}
	slog.Info("alert acknowledged", "alert", alertID)
	h.broadcastAlerts()
	return true
}

func (h *Hub) commandError(requester *Observer, machineID, message string) {
	if requester == nil {
		return
	}
	h.trySend(requester, marshalEnvelope(msgCommandError, commandError{
		MachineID: machineID,
		Message:   message,
	}))
}

// --- broadcast --------------------------------------------------------------

func (h *Hub) broadcastAlerts() {
	h.broadcast(marshalEnvelope(msgAlertsUpdate, h.alertLog.Recent(h.cfg.MaxAlerts)))
}

func (h *Hub) broadcast(msg []byte) {
	if msg == nil {
		return
	}
	h.mu.RLock()
	targets := make([]*Observer, 0, len(h.observers))
	for o := range h.observers {
		targets = append(targets, o)
	}
	h.mu.RUnlock()

	for _, o := range targets {
		h.trySend(o, msg)
	}
}

// trySend queues msg for o without blocking. An observer whose buffer is
// full is dropped — best-effort delivery, no retry.
func (h *Hub) trySend(o *Observer, msg []byte) {
	if msg == nil {
		return
	}
	select {
	case o.send <- msg:
	default:
		slog.Info("observer too slow — dropping", "observer", o.id)
		h.dropObserver(o)
	}
}

func (h *Hub) dropObserver(o *Observer) {
	h.mu.Lock()
	_, present := h.observers[o]
	if present {
		delete(h.observers, o)
		close(o.send)
	}
	h.mu.Unlock()
	if present {
		metrics.ObserversConnected.Set(float64(h.ObserverCount()))
		slog.Info("observer left", "observer", o.id)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for o := range h.observers {
		close(o.send)
		delete(h.observers, o)
	}
	h.conns = make(map[string]MachineConn)
	h.mu.Unlock()
	metrics.ObserversConnected.Set(0)
	metrics.MachinesConnected.Set(0)
}

// evictOld removes alerts older than the retention window.
func (h *Hub) evictOld() {
	cutoff := h.now().Add(-h.cfg.Retention)
	if removed := h.alertLog.EvictOlderThan(cutoff); removed > 0 {
		slog.Info("evicted aged alerts", "count", removed)
		h.broadcastAlerts()
	}
}

// --- read-only queries ------------------------------------------------------

// Snapshots returns every machine's current snapshot, sorted by ID.
func (h *Hub) Snapshots() []telemetry.MachineSnapshot { return h.machines.All() }

// Snapshot returns one machine's current snapshot.
func (h *Hub) Snapshot(machineID string) (telemetry.MachineSnapshot, bool) {
	return h.machines.Get(machineID)
}

// RecentAlerts returns up to n of the most recent alerts, oldest first.
func (h *Hub) RecentAlerts(n int) []telemetry.Alert { return h.alertLog.Recent(n) }

// UnacknowledgedAlerts returns all alerts awaiting operator acknowledgement.
func (h *Hub) UnacknowledgedAlerts() []telemetry.Alert { return h.alertLog.Unacknowledged() }

// ActiveAlertCount returns the number of currently active alerts.
func (h *Hub) ActiveAlertCount() int { return h.alertLog.ActiveCount() }

// ObserverCount returns the number of joined observers.
func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// MachineConnCount returns the number of machines with a live command channel.
func (h *Hub) MachineConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// StartedAt returns when the hub was constructed, for uptime reporting.
func (h *Hub) StartedAt() time.Time { return h.startedAt }
