/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the PV forecast comparison service. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load the options file (defaults apply when absent)
  3. Initialize SQLite store
  4. Wire sensor client, resolver, collector, scheduler
  5. Start slot timers and the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8123)
  -db      SQLite database path (default: /data/pv_forecast.db)
           Use ":memory:" for an in-memory database
  -config  Options file path (default: /data/options.json)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop slot timers, waiting for an in-flight collection
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with a local database and options file
  ./server -db=./pv_forecast.db -config=./options.json

  # Run fully in-memory on another port
  ./server -db=":memory:" -port=3000

ENVIRONMENT:
  HA_URL            Overrides the Home Assistant base URL
  SUPERVISOR_TOKEN  Overrides the access token

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - recon/scheduler.go: Slot timers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solarwatch/pv-compare/api"
	"github.com/solarwatch/pv-compare/config"
	"github.com/solarwatch/pv-compare/recon"
	"github.com/solarwatch/pv-compare/sensor"
	"github.com/solarwatch/pv-compare/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8123, "HTTP server port")
	dbPath := flag.String("db", "/data/pv_forecast.db", "SQLite database path")
	cfgPath := flag.String("config", config.DefaultPath, "options file path")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Sensor pipeline: client -> resolver -> collector
	client := sensor.NewClient(cfg.HAURL, cfg.HAToken)
	resolver := sensor.NewResolver(client)
	collector := recon.NewCollector(resolver, store, cfg.Quantities())

	hub := api.NewHub()

	// Slot timers: every fire goes through the same collector as
	// manual triggers and is pushed to connected dashboards.
	scheduler := recon.NewScheduler(func(ctx context.Context, slot recon.Slot) recon.Outcome {
		out := collector.Collect(ctx, slot)
		hub.BroadcastOutcome(out)
		return out
	}, cfg.Times())
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP layer
	handler := api.NewHandler(store, collector, cfg)
	handler.Scheduler = scheduler
	handler.Hub = hub
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("Dashboard API at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
