package store

import (
	"sync"
	"testing"
	"time"

	"github.com/factorypulse/factorypulse/server/internal/telemetry"
)

func snap(id string, status telemetry.Status) telemetry.MachineSnapshot {
	return telemetry.MachineSnapshot{ID: id, Status: status, LastUpdated: time.Now()}
}

func TestPutAndGet(t *testing.T) {
	tbl := NewSnapshotTable()
	tbl.Put(snap("M001", telemetry.StatusRunning))

	s, ok := tbl.Get("M001")
	if !ok {
		t.Fatal("Get: expected snapshot, got none")
	}
	if s.ID != "M001" {
		t.Errorf("ID: got %q, want M001", s.ID)
	}
}

func TestGet_Missing(t *testing.T) {
	tbl := NewSnapshotTable()
	if _, ok := tbl.Get("unknown"); ok {
		t.Fatal("Get on empty table: expected false, got true")
	}
}

func TestPut_LastWriteWins(t *testing.T) {
	tbl := NewSnapshotTable()
	tbl.Put(snap("M001", telemetry.StatusRunning))
	tbl.Put(snap("M001", telemetry.StatusError))

	s, _ := tbl.Get("M001")
	if s.Status != telemetry.StatusError {
		t.Errorf("Status: got %q, want error", s.Status)
	}
	if tbl.Count() != 1 {
		t.Errorf("Count: got %d, want 1", tbl.Count())
	}
}

func TestAll_SortedByID(t *testing.T) {
	tbl := NewSnapshotTable()
	for _, id := range []string{"M003", "M001", "M002"} {
		tbl.Put(snap(id, telemetry.StatusIdle))
	}

	all := tbl.All()
	if len(all) != 3 {
		t.Fatalf("All: got %d snapshots, want 3", len(all))
	}
	for i, want := range []string{"M001", "M002", "M003"} {
		if all[i].ID != want {
			t.Errorf("All[%d].ID: got %q, want %q", i, all[i].ID, want)
		}
	}
}

func TestConcurrentPuts(t *testing.T) {
	tbl := NewSnapshotTable()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tbl.Put(snap("M001", telemetry.StatusRunning))
		}()
		go func() {
			defer wg.Done()
			tbl.All()
		}()
	}
	wg.Wait()

	if tbl.Count() != 1 {
		t.Errorf("Count after concurrent puts: got %d, want 1", tbl.Count())
	}
}
