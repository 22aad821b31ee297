package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/factorypulse/factorypulse/simulator/internal/sim"
)

const reconnectDelay = 3 * time.Second

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws/machines", "hub machine endpoint")
	interval := flag.Duration("interval", 2*time.Second, "time between telemetry ticks")
	machineIDs := flag.String("machines", "M001,M002,M003,M004,M005,M006", "comma-separated machine IDs to simulate")
	seed := flag.Int64("seed", 0, "random seed; 0 derives one from the clock")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	var machines []*sim.Machine
	byID := make(map[string]*sim.Machine)
	for _, id := range strings.Split(*machineIDs, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		m := sim.New(id, rng)
		machines = append(machines, m)
		byID[id] = m
	}
	if len(machines) == 0 {
		slog.Error("no machines to simulate")
		os.Exit(1)
	}

	slog.Info("factorypulse-simulator starting",
		"server", *serverURL,
		"machines", len(machines),
		"interval", *interval,
		"seed", *seed,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Connect, stream until the connection drops, reconnect. State carries
	// across reconnects so output counters keep climbing.
	for ctx.Err() == nil {
		if err := run(ctx, *serverURL, *interval, machines, byID); err != nil {
			slog.Warn("connection lost", "err", err)
		}
		select {
		case <-ctx.Done():
		case <-time.After(reconnectDelay):
		}
	}

	slog.Info("factorypulse-simulator shutting down")
}

// run holds one connection: a ticker loop sending readings, and a reader
// applying commands from the hub. Returns when the connection fails or ctx
// is cancelled.
func run(ctx context.Context, url string, interval time.Duration, machines []*sim.Machine, byID map[string]*sim.Machine) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	slog.Info("connected", "server", url)

	// Commands arrive on the same connection the readings go out on. They
	// are applied between ticks via this channel so machine state stays
	// single-goroutine.
	commands := make(chan sim.Command, 16)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var cmd sim.Command
			if err := json.Unmarshal(raw, &cmd); err != nil || cmd.Name == "" {
				slog.Warn("ignoring unparseable command frame", "err", err)
				continue
			}
			commands <- cmd
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil

		case err := <-readErr:
			return err

		case cmd := <-commands:
			m, ok := byID[cmd.MachineID]
			if !ok {
				slog.Warn("command for unknown machine", "machine", cmd.MachineID)
				continue
			}
			m.Apply(cmd.Name)
			slog.Info("applied command",
				"machine", cmd.MachineID,
				"command", cmd.Name,
				"status", m.Status(),
			)

		case <-ticker.C:
			for _, m := range machines {
				if err := conn.WriteJSON(m.Step()); err != nil {
					return err
				}
			}
		}
	}
}
