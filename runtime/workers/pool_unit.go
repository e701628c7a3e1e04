package workers

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"scenario-lab/contract"
	"scenario-lab/domain"
	"scenario-lab/harness"
	"time"
)

// Ensure *PoolUnitWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*PoolUnitWorker)(nil)

// Job is one scenario bound to the id of its case in the run session.
type Job struct {
	CaseID   string
	Scenario harness.Scenario
}

type UpdateKind int

const (
	CaseStarted UpdateKind = iota
	CaseEnded
)

// Update reports progress of a job back to the orchestrator.
type Update struct {
	Kind   UpdateKind
	CaseID string
	At     time.Time
	Report domain.CaseReport
}

// PoolUnitWorker pulls jobs until the job channel is closed and executes them one at a time.
type PoolUnitWorker struct {
	name     contract.WorkerName
	executor contract.Executor
	jobs     <-chan Job
	updates  chan<- Update
	log      *slog.Logger
}

func NewPoolUnitWorker(
	executor contract.Executor,
	jobs <-chan Job,
	updates chan<- Update,
	log *slog.Logger) *PoolUnitWorker {
	return &PoolUnitWorker{
		executor: executor,
		jobs:     jobs,
		updates:  updates,
		log:      log,
	}
}

func (w *PoolUnitWorker) WithName(name string) *PoolUnitWorker {
	w.name = contract.WorkerName(name)
	return w
}

func (w *PoolUnitWorker) GetName() contract.WorkerName { return w.name }

func (w *PoolUnitWorker) Run(ctx context.Context) error {
	for {
		// a cancelled run must not pick new jobs, even when some are still queued
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker", "name", w.name)
			return ctx.Err()
		case job, ok := <-w.jobs:
			if !ok {
				w.log.Debug("Job channel is closed", "name", w.name)
				return nil
			}
			if err := w.send(ctx, Update{Kind: CaseStarted, CaseID: job.CaseID, At: time.Now().UTC()}); err != nil {
				return err
			}
			report := w.execute(ctx, job)
			if err := w.send(ctx, Update{Kind: CaseEnded, CaseID: job.CaseID, At: time.Now().UTC(), Report: report}); err != nil {
				return err
			}
		}
	}
}

// execute reports a crashing executor as a PANIC of the case it was running,
// so that the case is never lost.
func (w *PoolUnitWorker) execute(ctx context.Context, job Job) (report domain.CaseReport) {
	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Executor panicked", "name", w.name, "case", job.CaseID, "error", r)
			message := fmt.Sprintf("executor panicked: %v", r)
			report = domain.CaseReport{
				Outcome:   domain.OutcomePanic,
				Trace:     &domain.FailureTrace{Message: message, Trace: message + "\n" + string(debug.Stack())},
				StartedAt: startedAt,
				Duration:  time.Since(startedAt),
			}
		}
	}()
	return w.executor.Execute(ctx, job.Scenario)
}

// send prefers delivering over stopping: a finished case must reach the session even after cancellation.
func (w *PoolUnitWorker) send(ctx context.Context, u Update) error {
	select {
	case w.updates <- u:
		return nil
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case w.updates <- u:
		return nil
	}
}
