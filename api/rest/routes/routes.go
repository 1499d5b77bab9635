package routes

import (
	"asset-pipeline/api/rest/handlers"
	"asset-pipeline/core/repository"
	"asset-pipeline/core/task"
	"asset-pipeline/storage"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, db *repository.DB, manager *task.Manager, managed *storage.ManagedRepository) {
	taskRepo := repository.NewTaskRepository(db)
	binRepo := repository.NewBinRepository(db)
	assetRepo := repository.NewAssetRepository(db)

	taskHandler := handlers.NewTaskHandler(taskRepo, manager)
	binHandler := handlers.NewBinHandler(binRepo, assetRepo, managed)

	api := r.PathPrefix("/v1").Subrouter()

	// Task endpoints
	api.HandleFunc("/tasks", taskHandler.CreateTask).Methods("POST")
	api.HandleFunc("/tasks", taskHandler.ListTasks).Methods("GET")
	api.HandleFunc("/tasks/{id}", taskHandler.GetTask).Methods("GET")
	api.HandleFunc("/tasks/{id}", taskHandler.DeleteTask).Methods("DELETE")
	api.HandleFunc("/tasks/{id}/run", taskHandler.RunTask).Methods("POST")
	api.HandleFunc("/tasks/{id}/cancel", taskHandler.CancelTask).Methods("POST")

	// Bin endpoints
	api.HandleFunc("/bins/{uuid}", binHandler.GetBin).Methods("GET")
	api.HandleFunc("/bins/{uuid}/grant", binHandler.GrantAccess).Methods("POST")
	api.HandleFunc("/bins/{uuid}/revoke", binHandler.RevokeAccess).Methods("POST")
	api.HandleFunc("/bins/{uuid}/files/{path:.*}", binHandler.ReadFile).Methods("GET")
}
