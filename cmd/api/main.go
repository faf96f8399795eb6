package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/config"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/handlers"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/optimizer"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/services"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/session"
)

// memoryQuota mirrors the few megabytes a browser grants per origin.
const memoryQuota = 5 << 20

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Run history is optional; without a database the API still serves.
	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = openDatabase(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
	}
	ledger := services.NewRunLedger(db)
	if err := ledger.Migrate(); err != nil {
		log.Fatalf("Failed to migrate run ledger: %v", err)
	}

	var sessions session.Provider
	rdb, err := session.Connect(cfg.Redis, 5, 2*time.Second)
	if err != nil {
		log.Printf("redis unavailable, keeping sessions in memory: %v", err)
		sessions = session.NewMemoryProvider(memoryQuota)
	} else {
		defer rdb.Close()
		sessions = session.NewRedisProvider(rdb, cfg.Session.TTL)
	}

	publisher, err := services.NewSignalPublisher(cfg.MQTT)
	if err != nil {
		log.Printf("signal publisher disabled: %v", err)
	}
	defer publisher.Close()

	router := handlers.NewRouter(cfg, handlers.Deps{
		Auth:      services.NewAuthService(cfg.JWT),
		Sessions:  sessions,
		Optimizer: optimizer.NewClient(cfg.Optimizer),
		Ledger:    ledger,
		Publisher: publisher,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting server on %s optimizer=%s mock_fallback=%t", srv.Addr, cfg.Optimizer.BaseURL, cfg.Optimizer.MockFallback)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
