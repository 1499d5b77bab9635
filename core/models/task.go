package models

import "time"

// Task represents one unit of work delegated to the Cook processing service
type Task struct {
	PK         int64  // internal primary key, used for relational joins only
	ID         string // externally-visible task id, shared with Cook
	Name       string
	RecipeID   string
	Parameters map[string]interface{}
	State      TaskState
	Step       string // current remote processing stage, free text
	Report     map[string]interface{}
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TaskState represents the lifecycle state of a task
type TaskState string

const (
	TaskStateCreated   TaskState = "created"
	TaskStateStarted   TaskState = "started" // legacy alias of created, read-only
	TaskStateWaiting   TaskState = "waiting"
	TaskStateRunning   TaskState = "running"
	TaskStateDone      TaskState = "done"
	TaskStateError     TaskState = "error"
	TaskStateCancelled TaskState = "cancelled"
)

// ActiveTaskStates are the states the poller sweeps over. Terminal states
// (done, error, cancelled) are never revisited.
var ActiveTaskStates = []TaskState{TaskStateCreated, TaskStateStarted, TaskStateWaiting, TaskStateRunning}

// IsTerminal reports whether no further transitions are possible from s.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateDone || s == TaskStateError || s == TaskStateCancelled
}

// IsCreated reports whether the task has not yet been told to run.
// "started" is accepted as a legacy synonym; nothing writes it anymore.
func (s TaskState) IsCreated() bool {
	return s == TaskStateCreated || s == TaskStateStarted
}
