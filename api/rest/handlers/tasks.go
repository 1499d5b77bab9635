package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"asset-pipeline/core/cook"
	"asset-pipeline/core/models"
	"asset-pipeline/core/repository"
	"asset-pipeline/core/spec"
	"asset-pipeline/core/task"

	"github.com/gorilla/mux"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskRepo *repository.TaskRepository
	manager  *task.Manager
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskRepo *repository.TaskRepository, manager *task.Manager) *TaskHandler {
	return &TaskHandler{taskRepo: taskRepo, manager: manager}
}

// CreateTaskRequest represents the JSON request to create a task
type CreateTaskRequest struct {
	Name       string                 `json:"name"`
	Recipe     string                 `json:"recipe"`
	Parameters map[string]interface{} `json:"parameters"`
}

// CreateTask handles POST /v1/tasks. The body is either a JSON request or a
// YAML task spec document, selected by Content-Type.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "yaml") {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		parsed, err := spec.ParseTaskSpec(string(body))
		if err != nil {
			http.Error(w, "Invalid task spec: "+err.Error(), http.StatusBadRequest)
			return
		}
		req = CreateTaskRequest{Name: parsed.Name, Recipe: parsed.Recipe, Parameters: parsed.Parameters}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	created, err := h.manager.Create(r.Context(), req.Name, req.Recipe, req.Parameters)
	if err != nil {
		var validationErr *cook.ValidationError
		if errors.As(err, &validationErr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":      "invalid parameters",
				"recipe":     validationErr.RecipeID,
				"violations": validationErr.Violations,
			})
			return
		}
		http.Error(w, "Failed to create task: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(taskResponse(created))
}

// GetTask handles GET /v1/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	t, err := h.taskRepo.GetTask(vars["id"])
	if err != nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(taskResponse(t))
}

// ListTasks handles GET /v1/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var state *models.TaskState
	if stateParam := r.URL.Query().Get("state"); stateParam != "" {
		s := models.TaskState(stateParam)
		state = &s
	}

	tasks, err := h.taskRepo.ListTasks(state, 100)
	if err != nil {
		http.Error(w, "Failed to list tasks: "+err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, len(tasks))
	for i, t := range tasks {
		items[i] = taskResponse(t)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

// RunTask handles POST /v1/tasks/{id}/run
func (h *TaskHandler) RunTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.manager.Run)
}

// CancelTask handles POST /v1/tasks/{id}/cancel
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.manager.Cancel)
}

// DeleteTask handles DELETE /v1/tasks/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	t, err := h.taskRepo.GetTask(vars["id"])
	if err != nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	if err := h.manager.Delete(r.Context(), t); err != nil {
		http.Error(w, "Failed to delete task: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, *models.Task) error) {
	vars := mux.Vars(r)

	t, err := h.taskRepo.GetTask(vars["id"])
	if err != nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	if err := op(r.Context(), t); err != nil {
		http.Error(w, "Task transition failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(taskResponse(t))
}

func taskResponse(t *models.Task) map[string]interface{} {
	return map[string]interface{}{
		"id":         t.ID,
		"name":       t.Name,
		"recipe":     t.RecipeID,
		"parameters": t.Parameters,
		"state":      t.State,
		"step":       t.Step,
		"report":     t.Report,
		"error":      t.Error,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
}
