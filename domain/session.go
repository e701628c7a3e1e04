package domain

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// FailureTrace describes why a case did not pass.
// Expected and Actual are only set for comparison failures.
type FailureTrace struct {
	Message  string
	Trace    string
	Expected string
	Actual   string
}

func (f FailureTrace) IsComparison() bool {
	return f.Expected != "" || f.Actual != ""
}

// CaseReport is what an executor hands back once a scenario finished.
type CaseReport struct {
	Outcome   Outcome
	Trace     *FailureTrace
	Output    string
	StartedAt time.Time
	Duration  time.Duration
}

type TestCase struct {
	ID          string
	Suite       string
	Name        string
	DisplayName string
	Outcome     Outcome
	Status      Status
	Trace       *FailureTrace
	Output      string
	StartedAt   time.Time
	Duration    time.Duration
	Ignored     bool
}

func (c TestCase) QualifiedName() string {
	return c.Suite + "::" + c.Name
}

type TestSuite struct {
	Name  string
	Cases []TestCase
}

// Status is the worst status among the suite's cases.
func (s TestSuite) Status() Status {
	status := StatusNotRun
	for _, c := range s.Cases {
		status = status.Worst(c.Status)
	}
	return status
}

func (s TestSuite) Duration() time.Duration {
	return lo.SumBy(s.Cases, func(c TestCase) time.Duration { return c.Duration })
}

type Counts struct {
	Total    int
	Started  int
	Ignored  int
	Failures int
	Errors   int
}

// RunSession is the tree of suites and cases of one harness run.
// It is safe for concurrent use: workers start and end cases in parallel.
type RunSession struct {
	ID   uuid.UUID
	Name string

	mu         sync.RWMutex
	startedAt  time.Time
	duration   time.Duration
	suiteOrder []string
	suites     map[string][]string
	cases      map[string]*TestCase
	counts     Counts
	progress   ProgressState
}

func NewRunSession(name string) *RunSession {
	return &RunSession{
		ID:       uuid.New(),
		Name:     name,
		suites:   make(map[string][]string),
		cases:    make(map[string]*TestCase),
		progress: ProgressNotStarted,
	}
}

// AddCase registers a case in its suite, creating the suite on first use, and returns its id.
func (r *RunSession) AddCase(suite, name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := strconv.Itoa(len(r.cases))
	if _, ok := r.suites[suite]; !ok {
		r.suiteOrder = append(r.suiteOrder, suite)
	}
	r.suites[suite] = append(r.suites[suite], id)
	r.cases[id] = &TestCase{
		ID:          id,
		Suite:       suite,
		Name:        name,
		DisplayName: name,
		Outcome:     OutcomeNotRun,
		Status:      StatusNotRun,
	}
	r.counts.Total++
	return id
}

func (r *RunSession) Start(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startedAt = at
	r.progress = ProgressRunning
}

// CaseStarted flags a case as running. Unknown ids are ignored.
func (r *RunSession) CaseStarted(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[id]
	if !ok {
		return
	}
	c.Status = StatusRunning
	c.StartedAt = at
	r.counts.Started++
}

// CaseEnded records the report of a case and updates the counters.
// It returns the updated case and false if the id is unknown.
func (r *RunSession) CaseEnded(id string, report CaseReport) (TestCase, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[id]
	if !ok {
		return TestCase{}, false
	}

	c.Outcome = report.Outcome
	c.Status = report.Outcome.Status()
	c.Trace = report.Trace
	c.Output = report.Output
	c.Duration = report.Duration
	if !report.StartedAt.IsZero() {
		c.StartedAt = report.StartedAt
	}

	switch {
	case report.Outcome == OutcomeIgnored:
		c.Ignored = true
		r.counts.Ignored++
	case c.Status.IsError():
		r.counts.Errors++
	case c.Status.IsFailure():
		r.counts.Failures++
	}
	return *c, true
}

// Finish closes the session. A stopped session keeps its unstarted cases as NOT_RUN,
// cases still running at that point fall back to NOT_RUN as well.
func (r *RunSession) Finish(at time.Time, stopped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cases {
		if c.Status.IsRunning() {
			c.Status = StatusNotRun
			c.Outcome = OutcomeNotRun
		}
	}
	r.duration = at.Sub(r.startedAt)
	r.progress = ProgressCompleted
	if stopped {
		r.progress = ProgressStopped
	}
}

func (r *RunSession) StartedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.startedAt
}

func (r *RunSession) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.duration
}

func (r *RunSession) Progress() ProgressState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.progress
}

func (r *RunSession) Counts() Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts
}

func (r *RunSession) Case(id string) (TestCase, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[id]
	if !ok {
		return TestCase{}, false
	}
	return *c, true
}

// Suites returns a snapshot of the tree in registration order.
func (r *RunSession) Suites() []TestSuite {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.suiteOrder, func(name string, _ int) TestSuite {
		return TestSuite{
			Name: name,
			Cases: lo.Map(r.suites[name], func(id string, _ int) TestCase {
				return *r.cases[id]
			}),
		}
	})
}

func (r *RunSession) Cases() []TestCase {
	return lo.FlatMap(r.Suites(), func(s TestSuite, _ int) []TestCase { return s.Cases })
}

func (r *RunSession) FailedCases() []TestCase {
	return lo.Filter(r.Cases(), func(c TestCase, _ int) bool { return c.Status.IsErrorOrFailure() })
}

// Passed reports whether the run completed and no case ended in failure or error.
// A stopped run never passes, whatever its cases reported.
func (r *RunSession) Passed() bool {
	counts := r.Counts()
	return counts.Failures == 0 && counts.Errors == 0 && r.Progress() == ProgressCompleted
}

func (r *RunSession) Result() Result {
	counts := r.Counts()
	switch {
	case counts.Errors > 0:
		return ResultError
	case counts.Failures > 0:
		return ResultFailure
	case r.Progress() != ProgressCompleted:
		return ResultUndefined
	default:
		return ResultOK
	}
}
