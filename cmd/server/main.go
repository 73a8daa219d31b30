/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the course registration server: flags, store,
  services, router, graceful shutdown.

COMMAND-LINE FLAGS:
  -port         HTTP server port (default: 8080)
  -db           SQLite database path (default: registration.db)
                Use ":memory:" for an in-memory database
  -admin-token  Credential accepted for admin routes

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
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

	"github.com/campus/registration-engine/api"
	"github.com/campus/registration-engine/enroll"
	"github.com/campus/registration-engine/identity"
	"github.com/campus/registration-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "registration.db", "SQLite database path")
	adminToken := flag.String("admin-token", "", "credential accepted for admin routes")
	flag.Parse()

	if *adminToken == "" {
		log.Fatal("missing required -admin-token flag")
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire services
	registrar := enroll.NewRegistrar(store.Courses, store.Enrollments, store.Waitlist, store.Drops, store.Students)
	admin := enroll.NewAdmin(store.Courses, store.Enrollments, store.Waitlist, store.Drops, registrar)
	id := identity.NewService(store.Students, store.Emails)

	handler := api.NewHandler(registrar, admin, id, identity.StaticCredential(*adminToken))
	router := api.NewRouter(handler)

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
