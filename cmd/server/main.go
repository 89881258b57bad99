/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the community engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Create API handler with dues config and rate table
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  Flags (env fallback in parentheses):
    -port            HTTP server port (PORT, default 8080)
    -db              SQLite database path (DB_PATH, default community.db)
                     Use ":memory:" for an in-memory database
    -monthly-due     Fixed monthly due per resident (MONTHLY_DUE, default 750)
    -restrict-after  Consecutive unpaid months before restriction
                     (RESTRICT_AFTER, default 5)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server -db="./data/community.db"
  ./server -db=":memory:" -monthly-due=1000

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
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/verdant/community-engine/api"
	"github.com/verdant/community-engine/booking"
	"github.com/verdant/community-engine/dues"
	"github.com/verdant/community-engine/engine"
	"github.com/verdant/community-engine/store/sqlite"
)

func main() {
	// .env is optional; flags take precedence over environment values.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "community.db"), "SQLite database path")
	monthlyDue := flag.Float64("monthly-due", envFloat("MONTHLY_DUE", 750), "Fixed monthly due per resident")
	restrictAfter := flag.Int("restrict-after", envInt("RESTRICT_AFTER", dues.DefaultRestrictAfter),
		"Consecutive unpaid months before restriction")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, dues.Config{
		MonthlyDue:    engine.NewAmount(*monthlyDue),
		RestrictAfter: *restrictAfter,
	}, defaultRates(), engine.SystemClock{})

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
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
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

// defaultRates is the reference community's rate table. Deployments with
// different pricing swap this out; the engine itself carries no pricing
// policy.
func defaultRates() booking.RateTable {
	return booking.RateTable{
		booking.AmenityCourt:       {HourlyRate: engine.NewAmountFromInt(150), GuestThreshold: 10, PerGuestSurcharge: engine.NewAmountFromInt(10)},
		booking.AmenityGazebo:      {HourlyRate: engine.NewAmountFromInt(100), GuestThreshold: 15, PerGuestSurcharge: engine.NewAmountFromInt(5)},
		booking.AmenityParkingArea: {HourlyRate: engine.NewAmountFromInt(50), GuestThreshold: 0, PerGuestSurcharge: engine.ZeroAmount()},
		booking.AmenityClubhouse:   {HourlyRate: engine.NewAmountFromInt(300), GuestThreshold: 30, PerGuestSurcharge: engine.NewAmountFromInt(15)},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
