/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the campus meal-card server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Configure logging
  3. Open the store (SQLite, or in-memory for demo mode)
  4. Wire services: ledger, transaction log, directory, catalog
  5. Optionally seed the demo dataset
  6. Start the expiry sweeper and the HTTP server

CONFIGURATION (environment, see config/config.go):
  PORT, DB_PATH, JWT_SECRET, JWT_EXPIRY, SEED_DEMO_DATA, SWEEP_INTERVAL,
  LOG_LEVEL, LOG_FILE

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the expiry sweeper
  4. Close the store
  5. Exit

EXAMPLES:
  # Demo mode: in-memory store with seeded data
  DB_PATH=memory ./server

  # Persistent SQLite
  DB_PATH=./data/campuscard.db SEED_DEMO_DATA=false ./server

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
  - store/sqlite/sqlite.go, store/memory/memory.go: Store implementations
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/campuscard/server/api"
	"github.com/campuscard/server/config"
	"github.com/campuscard/server/directory"
	"github.com/campuscard/server/mealcard"
	"github.com/campuscard/server/menu"
	"github.com/campuscard/server/store/memory"
	"github.com/campuscard/server/store/sqlite"
)

// dataStore is what the domain services need from a storage backend.
type dataStore interface {
	mealcard.Store
	directory.Store
	menu.Store
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := newLogger(cfg)

	// Store selection: map-backed for demo mode, SQLite otherwise.
	var store dataStore
	if cfg.InMemory() {
		store = memory.New()
		log.Info("using in-memory store")
	} else {
		s, err := sqlite.New(cfg.DB.Path)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		store = s
		log.WithField("path", cfg.DB.Path).Info("using sqlite store")
	}
	defer store.Close()

	// Domain services.
	ledger := mealcard.NewCardLedger(store)
	txns := mealcard.NewTransactionLog(store, ledger)
	users := directory.New(store)
	meals := menu.NewCatalog(store)
	tokens := directory.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Expiry)

	handler := api.NewHandler(ledger, txns, users, meals, tokens, log)

	if cfg.SeedDemoData {
		if err := api.Seed(context.Background(), handler); err != nil {
			log.WithError(err).Warn("failed to seed demo data")
		}
	}

	sweeper := api.NewExpirySweeper(ledger, log)
	if cfg.SweepInterval > 0 {
		sweeper.CheckInterval = cfg.SweepInterval
	}
	sweeper.Start()
	defer sweeper.Stop()

	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("server starting on http://localhost:%d", cfg.Port)
		log.Infof("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("server stopped")
}

// newLogger builds the process logger. With LOG_FILE set, output rotates
// through lumberjack; otherwise it goes to stderr.
func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.Log.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	return log
}
