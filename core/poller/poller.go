package poller

import (
	"context"
	"sync"
	"time"

	"asset-pipeline/core/models"

	log "github.com/sirupsen/logrus"
)

// DefaultInterval is the wall-clock cadence between sweeps
const DefaultInterval = 3 * time.Second

// Source is one registered task-record type the poller advances
type Source interface {
	ListActive() ([]*models.Task, error)
	Advance(ctx context.Context, task *models.Task)
}

// Poller is the only component that advances task state autonomously. Each
// sweep discovers every active record across all registered sources and
// advances them concurrently. Sweeps are serialized: a tick that arrives
// while a sweep is still in flight is dropped, so a slow Cook service delays
// the next sweep instead of stacking remote calls.
type Poller struct {
	sources  []Source
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a poller over an explicit list of task sources
func New(sources []Source, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		sources:  sources,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is cancelled or Stop is called
func (p *Poller) Start(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Stop ends the sweep loop. Any in-flight sweep finishes first; no further
// sweeps are scheduled after Stop returns.
func (p *Poller) Stop() {
	close(p.stopChan)
	<-p.done
}

// Sweep runs one full pass over all active records. Records are advanced
// concurrently with no ordering guarantee across distinct tasks; a remote
// failure for one record is absorbed by its source and never blocks the rest.
func (p *Poller) Sweep(ctx context.Context) {
	var wg sync.WaitGroup

	for _, source := range p.sources {
		tasks, err := source.ListActive()
		if err != nil {
			log.WithError(err).Error("failed to list active tasks")
			continue
		}

		for _, task := range tasks {
			wg.Add(1)
			go func(s Source, t *models.Task) {
				defer wg.Done()
				s.Advance(ctx, t)
			}(source, task)
		}
	}

	wg.Wait()
}
