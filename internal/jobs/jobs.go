// Package jobs runs background maintenance on a cron schedule and records
// the outcome of every run.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/logger"
	"github.com/robfig/cron/v3"
)

const (
	StockExpirySweep = "stock-expiry-sweep"

	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Task does one unit of work and reports how many documents it touched.
type Task func(ctx context.Context) (int64, error)

// Runner executes tasks and records each run.
type Runner struct {
	runs RunStore
	now  func() time.Time
}

func NewRunner(runs RunStore) *Runner {
	return &Runner{runs: runs, now: time.Now}
}

// Run executes task under name. The run is recorded even when the task fails;
// a failure to record is logged.
func (r *Runner) Run(ctx context.Context, name string, task Task) (*models.JobRun, error) {
	run := &models.JobRun{Job: name, StartedAt: r.now().UTC()}
	n, err := task(ctx)
	run.FinishedAt = r.now().UTC()
	run.Affected = n
	run.Status = StatusSucceeded
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
	}
	if serr := r.runs.Save(ctx, run); serr != nil {
		logger.Errorf("job %s: %v", name, serr)
	}
	if err != nil {
		logger.WithFields(map[string]interface{}{"job": name, "affected": n}).Errorf("job failed: %v", err)
		return run, fmt.Errorf("job %s: %w", name, err)
	}
	logger.Infof("job %s finished: %d affected in %s", name, n, run.FinishedAt.Sub(run.StartedAt))
	return run, nil
}

// Last returns the most recent run of name, or nil.
func (r *Runner) Last(ctx context.Context, name string) (*models.JobRun, error) {
	return r.runs.Load(ctx, name)
}

// Scheduler triggers tasks on cron specs.
type Scheduler struct {
	cron    *cron.Cron
	runner  *Runner
	timeout time.Duration
}

func NewScheduler(runner *Runner) *Scheduler {
	return &Scheduler{cron: cron.New(), runner: runner, timeout: 5 * time.Minute}
}

// Add schedules task under name on a standard five-field cron spec.
func (s *Scheduler) Add(spec, name string, task Task) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.runner.Run(ctx, name, task); err != nil {
			logger.Errorf("scheduled %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
