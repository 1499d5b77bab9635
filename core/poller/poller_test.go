package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"asset-pipeline/core/cook"
	"asset-pipeline/core/models"
	"asset-pipeline/core/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient drives the real task manager without a network. Run fails
// for ids in failRun; PollStatus replays the scripted status per task.
type scriptedClient struct {
	mu       sync.Mutex
	statuses map[string]cook.JobStatus
	failRun  map[string]bool
	report   map[string]interface{}
	runCalls []string
}

func (c *scriptedClient) Submit(context.Context, string, string, string, map[string]interface{}) error {
	return nil
}

func (c *scriptedClient) Run(_ context.Context, taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runCalls = append(c.runCalls, taskID)
	if c.failRun[taskID] {
		return &cook.RemoteServiceError{Operation: "run", StatusCode: 503, Body: "cook unavailable"}
	}
	return nil
}

func (c *scriptedClient) Cancel(context.Context, string) error { return nil }
func (c *scriptedClient) Delete(context.Context, string) error { return nil }

func (c *scriptedClient) PollStatus(_ context.Context, taskID string) (*cook.JobStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := c.statuses[taskID]
	return &status, nil
}

func (c *scriptedClient) FetchReport(context.Context, string) (map[string]interface{}, error) {
	return c.report, nil
}

type memStore struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
}

func newMemStore(tasks ...*models.Task) *memStore {
	s := &memStore{tasks: make(map[string]*models.Task)}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *memStore) CreateTask(t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	return nil
}

func (s *memStore) GetTask(taskID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[taskID], nil
}

func (s *memStore) SaveTask(t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	return nil
}

func (s *memStore) DeleteTask(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, taskID)
	return nil
}

func (s *memStore) ListActive() ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []*models.Task
	for _, t := range s.tasks {
		if !t.State.IsTerminal() {
			active = append(active, t)
		}
	}
	return active, nil
}

func TestSweep_CreatedThenRunningScenario(t *testing.T) {
	record := &models.Task{ID: "t1", State: models.TaskStateCreated}
	client := &scriptedClient{statuses: map[string]cook.JobStatus{}}
	store := newMemStore(record)
	manager := task.NewManager(client, store)

	p := New([]Source{manager}, DefaultInterval)

	// Sweep 1: the created record is told to run; not yet running.
	p.Sweep(context.Background())
	assert.Equal(t, []string{"t1"}, client.runCalls)
	assert.Equal(t, models.TaskStateWaiting, record.State)
	assert.Nil(t, record.Report)

	// Sweep 2: the remote now reports running/rendering.
	client.mu.Lock()
	client.statuses["t1"] = cook.JobStatus{State: "running", Step: "rendering"}
	client.mu.Unlock()

	p.Sweep(context.Background())
	assert.Equal(t, models.TaskStateRunning, record.State)
	assert.Equal(t, "rendering", record.Step)
	assert.Nil(t, record.Report)
}

func TestSweep_FailureIsolation(t *testing.T) {
	tasks := []*models.Task{
		{ID: "good-1", State: models.TaskStateCreated},
		{ID: "bad", State: models.TaskStateCreated},
		{ID: "good-2", State: models.TaskStateCreated},
	}
	client := &scriptedClient{
		statuses: map[string]cook.JobStatus{},
		failRun:  map[string]bool{"bad": true},
	}
	store := newMemStore(tasks...)
	manager := task.NewManager(client, store)

	New([]Source{manager}, DefaultInterval).Sweep(context.Background())

	assert.Equal(t, models.TaskStateWaiting, tasks[0].State)
	assert.Equal(t, models.TaskStateWaiting, tasks[2].State)
	assert.Equal(t, models.TaskStateError, tasks[1].State)
	assert.Contains(t, tasks[1].Error, "run failed")
}

func TestSweep_TerminalRecordsNeverRevisited(t *testing.T) {
	tasks := []*models.Task{
		{ID: "done", State: models.TaskStateDone},
		{ID: "failed", State: models.TaskStateError},
		{ID: "cancelled", State: models.TaskStateCancelled},
	}
	client := &scriptedClient{statuses: map[string]cook.JobStatus{}}
	store := newMemStore(tasks...)
	manager := task.NewManager(client, store)

	New([]Source{manager}, DefaultInterval).Sweep(context.Background())

	assert.Empty(t, client.runCalls)
}

func TestSweep_DoneFetchesReportInSameUpdate(t *testing.T) {
	record := &models.Task{ID: "t1", State: models.TaskStateRunning}
	client := &scriptedClient{
		statuses: map[string]cook.JobStatus{"t1": {State: "done", Step: "finished"}},
		report:   map[string]interface{}{"artifacts": 3.0},
	}
	store := newMemStore(record)
	manager := task.NewManager(client, store)

	New([]Source{manager}, DefaultInterval).Sweep(context.Background())

	assert.Equal(t, models.TaskStateDone, record.State)
	require.NotNil(t, record.Report)
	assert.Equal(t, 3.0, record.Report["artifacts"])
}

// slowSource blocks each sweep long enough to outlast several tick intervals
type slowSource struct {
	sweeps  int32
	perTask time.Duration
}

func (s *slowSource) ListActive() ([]*models.Task, error) {
	atomic.AddInt32(&s.sweeps, 1)
	return []*models.Task{{ID: "t1", State: models.TaskStateWaiting}}, nil
}

func (s *slowSource) Advance(context.Context, *models.Task) {
	time.Sleep(s.perTask)
}

func TestStart_SweepsDoNotOverlap(t *testing.T) {
	source := &slowSource{perTask: 30 * time.Millisecond}
	p := New([]Source{source}, 5*time.Millisecond)

	go p.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	p.Stop()

	// With a 5ms interval and 30ms sweeps, an overlapping poller would run
	// ~20 sweeps; a serialized one can manage at most four in 100ms.
	sweeps := atomic.LoadInt32(&source.sweeps)
	assert.LessOrEqual(t, sweeps, int32(5))
	assert.GreaterOrEqual(t, sweeps, int32(1))
}

func TestStop_WaitsForInFlightSweepAndSchedulesNoMore(t *testing.T) {
	source := &slowSource{perTask: 20 * time.Millisecond}
	p := New([]Source{source}, 5*time.Millisecond)

	go p.Start(context.Background())
	time.Sleep(12 * time.Millisecond)
	p.Stop()

	after := atomic.LoadInt32(&source.sweeps)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&source.sweeps), "no sweeps may start after Stop returns")
}
