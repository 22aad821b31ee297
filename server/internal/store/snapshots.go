package store

import (
	"sort"
	"sync"

	"github.com/factorypulse/factorypulse/server/internal/telemetry"
)

// SnapshotTable holds the latest known snapshot per machine ID.
// Machines are a fixed known set — entries are replaced, never deleted.
type SnapshotTable struct {
	mu   sync.RWMutex
	data map[string]telemetry.MachineSnapshot
}

// NewSnapshotTable creates an empty SnapshotTable.
func NewSnapshotTable() *SnapshotTable {
	return &SnapshotTable{data: make(map[string]telemetry.MachineSnapshot)}
}

// Put stores or replaces the snapshot for snap.ID (last-write-wins, no merge).
func (t *SnapshotTable) Put(snap telemetry.MachineSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data[snap.ID] = snap
}

// Get returns the snapshot for the given machine ID and whether one exists.
func (t *SnapshotTable) Get(machineID string) (telemetry.MachineSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.data[machineID]
	return s, ok
}

// All returns every current snapshot, sorted by machine ID so output is
// stable across calls.
func (t *SnapshotTable) All() []telemetry.MachineSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]telemetry.MachineSnapshot, 0, len(t.data))
	for _, s := range t.data {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of machines with a current snapshot.
func (t *SnapshotTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}
