package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/lncpro/rosteraudit/internal/audit"
	"github.com/lncpro/rosteraudit/internal/config"
	"github.com/lncpro/rosteraudit/internal/db"
	"github.com/lncpro/rosteraudit/internal/ingestion"
	"github.com/lncpro/rosteraudit/internal/licenses"
	"github.com/lncpro/rosteraudit/internal/middleware"
	"github.com/lncpro/rosteraudit/internal/repository"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database, cfg.Server.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	sessionRepo := repository.NewSessionRepository(conn.Pool)
	configRepo := repository.NewConfigRepository(conn.Pool)
	cacheRepo := repository.NewLicenseCacheRepository(conn.Pool)

	// Wire services
	directory := licenses.NewDirectory()
	auditService := audit.NewService(
		sessionRepo,
		configRepo,
		cacheRepo,
		directory,
		cfg.Validation.FuzzyThreshold,
		cfg.Validation.LicenseMaxAge,
	)

	// Warm the license directory from the persisted snapshot
	if err := auditService.LoadLicenses(ctx); err != nil {
		log.Fatalf("Failed to load license directory: %v", err)
	}

	ingestionService := ingestion.NewService()

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", audit.NewHTTPHandler(auditService))
	mux.Handle("/api/roster/upload", ingestion.NewHTTPHandler(ingestionService, auditService))

	handler := corsHandler.Handler(middleware.LoggingMiddleware(mux))

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting roster audit server on %s", cfg.Server.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
