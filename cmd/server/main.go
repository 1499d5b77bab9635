package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"asset-pipeline/api/rest/routes"
	"asset-pipeline/config"
	"asset-pipeline/core/cook"
	"asset-pipeline/core/poller"
	"asset-pipeline/core/repository"
	"asset-pipeline/core/task"
	"asset-pipeline/storage"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

func main() {
	cfg := config.Load()

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	// Initialize database
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Info("Database connected successfully")

	// Initialize repositories
	taskRepo := repository.NewTaskRepository(db)
	assetRepo := repository.NewAssetRepository(db)

	// Initialize Cook client and the task manager over it
	cookClient := cook.NewClient(cfg.CookBaseURL, cfg.CookClientID)
	manager := task.NewManager(cookClient, taskRepo)

	// Initialize file store and the managed repository
	store := storage.NewFileStore(afero.NewOsFs(), cfg.StoreRoot)
	mounts := storage.NewMountSet("/repo")
	managed := storage.NewManagedRepository(store, assetRepo, mounts)

	// Start the job poller with the task repository as its registered source
	ctx := context.Background()
	jobPoller := poller.New([]poller.Source{manager}, cfg.PollInterval)
	go jobPoller.Start(ctx)
	defer jobPoller.Stop()

	// Setup routes
	r := mux.NewRouter()
	routes.SetupRoutes(r, db, manager, managed)

	// WebDAV mounts for granted bins
	r.PathPrefix("/repo/").Handler(mounts)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		log.Infof("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Info("Server exited")
}
