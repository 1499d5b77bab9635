package task

import (
	"context"
	"fmt"

	"asset-pipeline/core/cook"
	"asset-pipeline/core/models"

	log "github.com/sirupsen/logrus"
)

// RemoteClient is the slice of the Cook client the manager drives tasks with
type RemoteClient interface {
	Submit(ctx context.Context, taskID, name, recipeID string, parameters map[string]interface{}) error
	Run(ctx context.Context, taskID string) error
	Cancel(ctx context.Context, taskID string) error
	Delete(ctx context.Context, taskID string) error
	PollStatus(ctx context.Context, taskID string) (*cook.JobStatus, error)
	FetchReport(ctx context.Context, taskID string) (map[string]interface{}, error)
}

// Store is the persistence surface for one task-record type
type Store interface {
	CreateTask(task *models.Task) error
	GetTask(taskID string) (*models.Task, error)
	SaveTask(task *models.Task) error
	DeleteTask(taskID string) error
	ListActive() ([]*models.Task, error)
}

// Manager implements the task capability set (create, run, cancel, delete,
// poll-and-update) once, parameterized by its store. Every registered
// task-record type gets its own Manager over the same implementation.
type Manager struct {
	client RemoteClient
	store  Store
}

// NewManager creates a new task manager
func NewManager(client RemoteClient, store Store) *Manager {
	return &Manager{client: client, store: store}
}

// Create inserts a task record and registers it with Cook as one compensating
// transaction: when the remote submission is rejected, the just-created local
// record is deleted before the error is returned, so no orphaned record is
// left behind.
func (m *Manager) Create(ctx context.Context, name, recipeID string, parameters map[string]interface{}) (*models.Task, error) {
	task := &models.Task{
		Name:       name,
		RecipeID:   recipeID,
		Parameters: parameters,
		State:      models.TaskStateCreated,
	}

	if err := m.store.CreateTask(task); err != nil {
		return nil, err
	}

	if err := m.client.Submit(ctx, task.ID, task.Name, task.RecipeID, task.Parameters); err != nil {
		if delErr := m.store.DeleteTask(task.ID); delErr != nil {
			log.WithError(delErr).WithField("task", task.ID).Error("failed to roll back task after rejected submission")
		}
		return nil, err
	}

	return task, nil
}

// Get retrieves a task by external id
func (m *Manager) Get(taskID string) (*models.Task, error) {
	return m.store.GetTask(taskID)
}

// ListActive returns all non-terminal tasks of this manager's record type
func (m *Manager) ListActive() ([]*models.Task, error) {
	return m.store.ListActive()
}

// Run asks Cook to start the task and moves it to waiting; the poller's next
// sweep picks up the remote state from there.
func (m *Manager) Run(ctx context.Context, task *models.Task) error {
	if err := m.client.Run(ctx, task.ID); err != nil {
		return err
	}
	task.State = models.TaskStateWaiting
	return m.store.SaveTask(task)
}

// Cancel asks Cook to stop the task and persists the cancelled state
func (m *Manager) Cancel(ctx context.Context, task *models.Task) error {
	if task.State.IsTerminal() {
		return nil
	}
	if err := m.client.Cancel(ctx, task.ID); err != nil {
		return err
	}
	task.State = models.TaskStateCancelled
	return m.store.SaveTask(task)
}

// Delete instructs Cook to discard its copy of the task, then removes the
// local record
func (m *Manager) Delete(ctx context.Context, task *models.Task) error {
	if err := m.client.Delete(ctx, task.ID); err != nil {
		return err
	}
	return m.store.DeleteTask(task.ID)
}

// PollAndUpdate copies the remote state, step and error onto the record. When
// the remote state is terminal the report is fetched and persisted in the
// same update. A failed report fetch leaves the report null and is only
// logged: a missing report in a terminal state signals a fetch failure, not
// task failure.
func (m *Manager) PollAndUpdate(ctx context.Context, task *models.Task) error {
	status, err := m.client.PollStatus(ctx, task.ID)
	if err != nil {
		return err
	}

	task.State = models.TaskState(status.State)
	task.Step = status.Step
	task.Error = status.Error

	if task.State == models.TaskStateDone || task.State == models.TaskStateError {
		report, err := m.client.FetchReport(ctx, task.ID)
		if err != nil {
			log.WithError(err).WithField("task", task.ID).Warn("failed to fetch report for terminal task")
		} else {
			task.Report = report
		}
	}

	return m.store.SaveTask(task)
}

// Advance drives one task through a single poll-cycle step. Remote failures
// are recorded on the task itself, never returned: one broken task must not
// stall the rest of a sweep.
func (m *Manager) Advance(ctx context.Context, task *models.Task) {
	switch {
	case task.State.IsCreated():
		if err := m.Run(ctx, task); err != nil {
			m.fail(task, "run", err)
		}
	case task.State == models.TaskStateWaiting || task.State == models.TaskStateRunning:
		if err := m.PollAndUpdate(ctx, task); err != nil {
			m.fail(task, "update", err)
		}
	default:
		// terminal, nothing to do
	}
}

// fail marks a task as terminally failed, naming the operation that broke
func (m *Manager) fail(task *models.Task, operation string, cause error) {
	task.State = models.TaskStateError
	task.Error = fmt.Sprintf("%s failed: %v", operation, cause)

	if err := m.store.SaveTask(task); err != nil {
		log.WithError(err).WithField("task", task.ID).Error("failed to persist task failure")
	}
}
