package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/factorypulse/factorypulse/server/internal/api"
	"github.com/factorypulse/factorypulse/server/internal/config"
	"github.com/factorypulse/factorypulse/server/internal/hub"
	"github.com/factorypulse/factorypulse/server/internal/metrics"
	"github.com/factorypulse/factorypulse/server/internal/mqttingest"
	"github.com/factorypulse/factorypulse/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the dashboard static files from this directory (e.g. ui/dist); leave empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("factorypulse-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	directory := config.NewDirectory(cfg.Server.Machines)

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"alert_cooldown", cfg.Server.Alerts.Cooldown,
		"alert_retention", cfg.Server.Alerts.Retention,
		"machines", directory.Size(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The hub owns all state; everything below is a surface over it.
	h := hub.New(cfg.Server.Alerts, directory)
	go h.Run(ctx)

	// Reload the machine directory when the config file changes on disk.
	// Alert timing and ports stay fixed until restart.
	go func() {
		err := config.WatchDirectory(ctx, *configPath, func(dir *config.Directory) {
			h.SetDirectory(dir)
		})
		if err != nil {
			slog.Error("directory watch stopped", "err", err)
		}
	}()

	// Optional MQTT ingest bridge for machines that publish to a broker
	// instead of holding a WebSocket open.
	if cfg.Server.MQTT.Broker != "" {
		bridge, err := mqttingest.Start(cfg.Server.MQTT, h)
		if err != nil {
			slog.Error("failed to start mqtt bridge", "err", err)
			os.Exit(1)
		}
		defer bridge.Close()
	}

	// Combined HTTP server: REST API, both WebSocket endpoints, and metrics.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(h, directory.Size()))
	httpMux.Handle("/ws/machines", ws.NewMachines(h))
	httpMux.Handle("/ws/dashboard", ws.NewDashboard(h))
	httpMux.Handle("/metrics", metrics.Handler())

	// Optional: serve the pre-built dashboard from a local directory.
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := *uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("factorypulse-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
