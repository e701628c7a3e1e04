// Package runtime drives a run: it registers scenarios in a session, feeds them
// to a supervised worker pool and turns worker updates into events.
// It holds no scenario logic, classification happens behind the executor.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"scenario-lab/contract"
	"scenario-lab/domain"
	"scenario-lab/domain/event"
	"scenario-lab/errors"
	"scenario-lab/harness"
	"scenario-lab/runtime/workers"
	"time"
)

var _ contract.IOrchestrator = (*Orchestrator)(nil)

type Orchestrator struct {
	log             *slog.Logger
	name            string
	executor        contract.Executor
	handler         event.Handler
	numWorkers      int
	restartInterval time.Duration
	now             func() time.Time
}

func NewOrchestrator(log *slog.Logger, name string, executor contract.Executor, handler event.Handler,
	numWorkers int, restartInterval time.Duration) *Orchestrator {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Orchestrator{
		log:             log,
		name:            name,
		executor:        executor,
		handler:         handler,
		numWorkers:      numWorkers,
		restartInterval: restartInterval,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Run executes every scenario once and returns the finished session.
// Cancelling ctx stops the run: cases not started yet stay NOT_RUN and the
// session ends in the Stopped progress state. The error is only set when
// nothing could be run.
func (o *Orchestrator) Run(ctx context.Context, scenarios []harness.Scenario) (*domain.RunSession, error) {
	if len(scenarios) == 0 {
		return nil, errors.ErrNoScenarios
	}

	session := domain.NewRunSession(o.name)
	jobs := make(chan workers.Job, len(scenarios))
	for _, s := range scenarios {
		jobs <- workers.Job{CaseID: session.AddCase(s.Suite, s.Name), Scenario: s}
	}
	close(jobs)

	// Large enough for every update of every job: workers never block on it.
	updates := make(chan workers.Update, 2*len(scenarios))

	session.Start(o.now())
	o.emit(event.RunStartedType, event.RunStarted{SessionID: session.ID, Name: session.Name, Count: len(scenarios)})
	o.log.Info("Run started", "session", session.ID, "scenarios", len(scenarios), "workers", o.numWorkers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sup := workers.NewSupervisor(o.log, o.restartInterval, o.handler)
	for i := 0; i < min(o.numWorkers, len(scenarios)); i++ {
		sup.Add(workers.NewPoolUnitWorker(o.executor, jobs, updates, o.log).WithName(fmt.Sprintf("pool-unit-%d", i)))
	}
	done := make(chan struct{})
	go func() {
		sup.Run(runCtx)
		close(done)
	}()

	remaining := len(scenarios)
	stopped := false
loop:
	for remaining > 0 {
		select {
		case u := <-updates:
			if o.apply(session, u) {
				remaining--
			}
		case <-ctx.Done():
			o.log.Warn("Run interrupted", "session", session.ID, "remaining", remaining)
			stopped = true
			break loop
		case <-done:
			break loop
		}
	}

	cancel()
	<-done
	remaining -= o.drain(session, updates)
	stopped = stopped || remaining > 0 || ctx.Err() != nil

	session.Finish(o.now(), stopped)
	payload := event.RunEnded{SessionID: session.ID, Counts: session.Counts(), Duration: session.Duration(), Stopped: stopped, Session: session}
	if stopped {
		o.emit(event.RunStoppedType, payload)
	} else {
		o.emit(event.RunEndedType, payload)
	}
	o.log.Info("Run finished", "session", session.ID, "progress", session.Progress(), "result", session.Result())
	return session, nil
}

// apply records an update in the session and reports whether a case ended.
func (o *Orchestrator) apply(session *domain.RunSession, u workers.Update) bool {
	switch u.Kind {
	case workers.CaseStarted:
		session.CaseStarted(u.CaseID, u.At)
		if c, ok := session.Case(u.CaseID); ok {
			o.emit(event.TestStartedType, event.TestStarted{SessionID: session.ID, Case: c})
		}
		return false
	case workers.CaseEnded:
		c, ok := session.CaseEnded(u.CaseID, u.Report)
		if !ok {
			o.log.Error("Update for unknown case", "case", u.CaseID)
			return false
		}
		if c.Status.IsErrorOrFailure() {
			o.emit(event.TestFailedType, event.TestFailed{SessionID: session.ID, Case: c})
		}
		o.emit(event.TestEndedType, event.TestEnded{SessionID: session.ID, Case: c})
		return true
	default:
		return false
	}
}

// drain applies what workers pushed before they stopped and returns the number of ended cases.
func (o *Orchestrator) drain(session *domain.RunSession, updates chan workers.Update) int {
	ended := 0
	for {
		select {
		case u := <-updates:
			if o.apply(session, u) {
				ended++
			}
		default:
			return ended
		}
	}
}

func (o *Orchestrator) emit(t event.Type, payload any) {
	if o.handler == nil {
		return
	}
	o.handler.Handle(event.New(t, payload))
}
