package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"asset-pipeline/core/models"

	"github.com/google/uuid"
)

// TaskRepository handles database operations for tasks
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateTask inserts a new task record. A missing external id is generated.
// Parameters and report are stored as JSON; they stay native maps everywhere
// above this layer.
func (r *TaskRepository) CreateTask(task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.State == "" {
		task.State = models.TaskStateCreated
	}

	paramsJSON, err := json.Marshal(task.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	query := `
		INSERT INTO tasks (task_id, name, recipe_id, parameters, state, step, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING pk, created_at, updated_at
	`

	return r.db.QueryRow(query,
		task.ID,
		task.Name,
		task.RecipeID,
		string(paramsJSON),
		task.State,
		task.Step,
	).Scan(&task.PK, &task.CreatedAt, &task.UpdatedAt)
}

// GetTask retrieves a task by its external id
func (r *TaskRepository) GetTask(taskID string) (*models.Task, error) {
	query := `
		SELECT pk, task_id, name, recipe_id, parameters, state, step, report, error, created_at, updated_at
		FROM tasks
		WHERE task_id = $1
	`
	return r.scanTask(r.db.QueryRow(query, taskID))
}

// ListTasks lists tasks, optionally filtered by state, newest first
func (r *TaskRepository) ListTasks(state *models.TaskState, limit int) ([]*models.Task, error) {
	query := `
		SELECT pk, task_id, name, recipe_id, parameters, state, step, report, error, created_at, updated_at
		FROM tasks
	`
	args := []interface{}{}
	if state != nil {
		query += " WHERE state = $1"
		args = append(args, *state)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectTasks(rows)
}

// ListActive returns every task whose state is non-terminal. This is the
// poller's active set; done, error and cancelled records are never returned.
func (r *TaskRepository) ListActive() ([]*models.Task, error) {
	states := make([]string, len(models.ActiveTaskStates))
	args := make([]interface{}, len(models.ActiveTaskStates))
	for i, s := range models.ActiveTaskStates {
		states[i] = fmt.Sprintf("$%d", i+1)
		args[i] = string(s)
	}

	query := fmt.Sprintf(`
		SELECT pk, task_id, name, recipe_id, parameters, state, step, report, error, created_at, updated_at
		FROM tasks
		WHERE state IN (%s)
		ORDER BY created_at ASC
	`, strings.Join(states, ", "))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectTasks(rows)
}

// SaveTask persists the mutable fields of a task (state, step, error, report)
func (r *TaskRepository) SaveTask(task *models.Task) error {
	var reportJSON *string
	if task.Report != nil {
		b, err := json.Marshal(task.Report)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		s := string(b)
		reportJSON = &s
	}

	query := `
		UPDATE tasks
		SET state = $1, step = $2, error = $3, report = $4, updated_at = NOW()
		WHERE task_id = $5
	`
	_, err := r.db.Exec(query, task.State, task.Step, task.Error, reportJSON, task.ID)
	if err == nil {
		task.UpdatedAt = time.Now()
	}
	return err
}

// DeleteTask removes a task record by external id
func (r *TaskRepository) DeleteTask(taskID string) error {
	_, err := r.db.Exec(`DELETE FROM tasks WHERE task_id = $1`, taskID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *TaskRepository) scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var paramsJSON string
	var reportJSON sql.NullString
	var errText sql.NullString
	var step sql.NullString

	err := row.Scan(
		&task.PK,
		&task.ID,
		&task.Name,
		&task.RecipeID,
		&paramsJSON,
		&task.State,
		&step,
		&reportJSON,
		&errText,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paramsJSON != "" {
		json.Unmarshal([]byte(paramsJSON), &task.Parameters)
	}
	if reportJSON.Valid && reportJSON.String != "" {
		json.Unmarshal([]byte(reportJSON.String), &task.Report)
	}
	if errText.Valid {
		task.Error = errText.String
	}
	if step.Valid {
		task.Step = step.String
	}

	return &task, nil
}

func (r *TaskRepository) collectTasks(rows *sql.Rows) ([]*models.Task, error) {
	var tasks []*models.Task
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
