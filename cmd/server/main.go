/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shift engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Seed the achievement catalog
  4. Wire the achievement service and shift tracker
  5. Resume any active shift that survived a restart
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: shifts.db)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

  An active shift is NOT ended on shutdown: it stays persisted as active
  and the tracker resumes it on the next start.

EXAMPLES:
  # Run with file database
  ./server -db="./data/shifts.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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

	"github.com/warp/shift-engine/achieve"
	"github.com/warp/shift-engine/api"
	"github.com/warp/shift-engine/core"
	"github.com/warp/shift-engine/shift"
	"github.com/warp/shift-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "shifts.db", "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed the achievement catalog (idempotent)
	if err := achieve.Seed(context.Background(), store); err != nil {
		log.Fatalf("Failed to seed achievements: %v", err)
	}

	clock := core.SystemClock{}
	service := achieve.NewService(store, store, clock)

	// Tracker with achievement re-evaluation on every completed shift
	tracker := shift.NewTracker(store, clock,
		shift.WithCompletionHook(service.Hook()),
	)

	// Adopt an active shift that survived a restart
	if err := tracker.Resume(context.Background()); err != nil {
		log.Printf("Warning: Failed to resume active shift: %v", err)
	}

	// Initialize handler
	handler := api.NewHandler(store, tracker, service, clock)

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
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
