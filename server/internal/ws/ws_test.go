package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/factorypulse/factorypulse/server/internal/config"
	"github.com/factorypulse/factorypulse/server/internal/hub"
	"github.com/factorypulse/factorypulse/server/internal/ws"
)

// --- helpers ----------------------------------------------------------------

// startServer wires a hub plus both WebSocket endpoints onto one test server.
// Returns the ws:// base URL and the hub.
func startServer(t *testing.T) (baseURL string, h *hub.Hub) {
	t.Helper()

	cfg := config.AlertsConfig{
		Cooldown:      120 * time.Second,
		Retention:     24 * time.Hour,
		MaxAlerts:     50,
		EvictInterval: time.Hour,
	}
	h = hub.New(cfg, config.NewDirectory(nil))
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws/machines", ws.NewMachines(h))
	mux.Handle("/ws/dashboard", ws.NewDashboard(h))
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return "ws" + strings.TrimPrefix(srv.URL, "http"), h
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", msg, err)
	}
	return m
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, _ := json.Marshal(v)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
}

func readingFrame(machineID string, temp float64) map[string]any {
	return map[string]any{
		"type":        "machine_data",
		"machineId":   machineID,
		"status":      "running",
		"temperature": temp,
		"vibration":   1.2,
		"efficiency":  88,
		"output":      5,
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// --- tests ------------------------------------------------------------------

func TestMachineReading_ReachesHub(t *testing.T) {
	base, h := startServer(t)
	conn := dial(t, base+"/ws/machines")

	sendJSON(t, conn, readingFrame("M001", 62))

	waitFor(t, "snapshot", func() bool {
		_, ok := h.Snapshot("M001")
		return ok
	})
	snap, _ := h.Snapshot("M001")
	if snap.Name != "CNC Mill Alpha" {
		t.Errorf("Name: got %q, want CNC Mill Alpha", snap.Name)
	}
	if h.MachineConnCount() != 1 {
		t.Errorf("MachineConnCount: got %d, want 1", h.MachineConnCount())
	}
}

func TestDashboardConnect_ReceivesInitialData(t *testing.T) {
	base, h := startServer(t)

	machine := dial(t, base+"/ws/machines")
	sendJSON(t, machine, readingFrame("M002", 70))
	waitFor(t, "snapshot", func() bool {
		_, ok := h.Snapshot("M002")
		return ok
	})

	dash := dial(t, base+"/ws/dashboard")
	m := readJSON(t, dash)
	if m["type"] != "initial_data" {
		t.Fatalf("type: got %v, want initial_data", m["type"])
	}
	data, ok := m["data"].(map[string]any)
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	machines, ok := data["machines"].([]any)
	if !ok || len(machines) != 1 {
		t.Fatalf("machines: got %v", data["machines"])
	}
	first := machines[0].(map[string]any)
	if first["id"] != "M002" {
		t.Errorf("machine id: got %v, want M002", first["id"])
	}
	if _, ok := data["kpis"].([]any); !ok {
		t.Error("kpis: missing")
	}
}

func TestDashboard_ReceivesMachineUpdate(t *testing.T) {
	base, _ := startServer(t)

	dash := dial(t, base+"/ws/dashboard")
	if m := readJSON(t, dash); m["type"] != "initial_data" {
		t.Fatalf("first message: got %v, want initial_data", m["type"])
	}

	machine := dial(t, base+"/ws/machines")
	sendJSON(t, machine, readingFrame("M003", 64))

	m := readJSON(t, dash)
	if m["type"] != "machine_update" {
		t.Fatalf("type: got %v, want machine_update", m["type"])
	}
	data := m["data"].(map[string]any)
	if data["id"] != "M003" {
		t.Errorf("machine id: got %v, want M003", data["id"])
	}
}

func TestDashboard_AlertBroadcast(t *testing.T) {
	base, _ := startServer(t)

	dash := dial(t, base+"/ws/dashboard")
	readJSON(t, dash) // initial_data

	machine := dial(t, base+"/ws/machines")
	sendJSON(t, machine, readingFrame("M001", 92)) // over the temperature band

	if m := readJSON(t, dash); m["type"] != "machine_update" {
		t.Fatalf("got %v, want machine_update", m["type"])
	}
	m := readJSON(t, dash)
	if m["type"] != "alerts_update" {
		t.Fatalf("got %v, want alerts_update", m["type"])
	}
	alerts, ok := m["data"].([]any)
	if !ok || len(alerts) != 1 {
		t.Fatalf("alerts: got %v", m["data"])
	}
	a := alerts[0].(map[string]any)
	if a["ruleKey"] != "temp_high" || a["status"] != "active" {
		t.Errorf("alert: got %v", a)
	}
}

func TestCommand_RoutedToMachineConnection(t *testing.T) {
	base, h := startServer(t)

	machine := dial(t, base+"/ws/machines")
	sendJSON(t, machine, readingFrame("M001", 60))
	waitFor(t, "machine registration", func() bool { return h.MachineConnCount() == 1 })

	dash := dial(t, base+"/ws/dashboard")
	readJSON(t, dash) // initial_data

	sendJSON(t, dash, map[string]string{
		"type":      "machine_command",
		"machineId": "M001",
		"command":   "stop",
	})

	cmd := readJSON(t, machine)
	if cmd["command"] != "stop" || cmd["machineId"] != "M001" {
		t.Errorf("command payload: got %v", cmd)
	}
	if _, ok := cmd["timestamp"].(float64); !ok {
		t.Error("timestamp: missing")
	}

	// Successful routing is audited: the dashboard sees an alerts_update
	// carrying the command record.
	m := readJSON(t, dash)
	if m["type"] != "alerts_update" {
		t.Fatalf("got %v, want alerts_update", m["type"])
	}
}

func TestCommand_UnconnectedMachine_ErrorToRequester(t *testing.T) {
	base, _ := startServer(t)

	dash := dial(t, base+"/ws/dashboard")
	readJSON(t, dash) // initial_data

	sendJSON(t, dash, map[string]string{
		"type":      "machine_command",
		"machineId": "M004",
		"command":   "start",
	})

	m := readJSON(t, dash)
	if m["type"] != "command_error" {
		t.Fatalf("got %v, want command_error", m["type"])
	}
	data := m["data"].(map[string]any)
	if data["machineId"] != "M004" || data["message"] != "Machine not connected" {
		t.Errorf("command_error: got %v", data)
	}
}

func TestAcknowledge_FromDashboard(t *testing.T) {
	base, h := startServer(t)

	machine := dial(t, base+"/ws/machines")
	sendJSON(t, machine, readingFrame("M001", 95))
	waitFor(t, "alert", func() bool { return len(h.RecentAlerts(1)) == 1 })
	alertID := h.RecentAlerts(1)[0].ID

	dash := dial(t, base+"/ws/dashboard")
	readJSON(t, dash) // initial_data

	sendJSON(t, dash, map[string]string{"type": "acknowledge_alert", "alertId": alertID})

	m := readJSON(t, dash)
	if m["type"] != "alerts_update" {
		t.Fatalf("got %v, want alerts_update", m["type"])
	}
	waitFor(t, "acknowledgement", func() bool { return len(h.UnacknowledgedAlerts()) == 0 })
}

func TestMachineDisconnect_ClearsRegistration(t *testing.T) {
	base, h := startServer(t)

	machine := dial(t, base+"/ws/machines")
	sendJSON(t, machine, readingFrame("M005", 60))
	waitFor(t, "machine registration", func() bool { return h.MachineConnCount() == 1 })

	machine.Close()
	waitFor(t, "machine deregistration", func() bool { return h.MachineConnCount() == 0 })
}

func TestDashboardDisconnect_LeavesHub(t *testing.T) {
	base, h := startServer(t)

	dash := dial(t, base+"/ws/dashboard")
	readJSON(t, dash)
	waitFor(t, "observer join", func() bool { return h.ObserverCount() == 1 })

	dash.Close()
	waitFor(t, "observer leave", func() bool { return h.ObserverCount() == 0 })
}

func TestNonWebSocketRequest_Returns400(t *testing.T) {
	base, _ := startServer(t)
	url := "http" + strings.TrimPrefix(base, "ws")

	for _, path := range []string{"/ws/machines", "/ws/dashboard"} {
		resp, err := http.Get(url + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", path, resp.StatusCode)
		}
	}
}
