package domain

import "github.com/samber/lo"

// Status is the lifecycle state of a test element.
type Status string

const (
	StatusNotRun         Status = "NOT_RUN"
	StatusRunning        Status = "RUNNING"
	StatusRunningFailure Status = "RUNNING_FAILURE"
	StatusRunningError   Status = "RUNNING_ERROR"
	StatusOK             Status = "OK"
	StatusFailure        Status = "FAILURE"
	StatusError          Status = "ERROR"
)

func (s Status) IsOK() bool {
	return s == StatusOK || s == StatusRunning || s == StatusNotRun
}

func (s Status) IsFailure() bool {
	return s == StatusFailure || s == StatusRunningFailure
}

func (s Status) IsError() bool {
	return s == StatusError || s == StatusRunningError
}

func (s Status) IsErrorOrFailure() bool {
	return s.IsError() || s.IsFailure()
}

func (s Status) IsNotRun() bool {
	return s == StatusNotRun
}

func (s Status) IsRunning() bool {
	return s == StatusRunning || s == StatusRunningFailure || s == StatusRunningError
}

func (s Status) IsDone() bool {
	return s == StatusOK || s == StatusFailure || s == StatusError
}

// Result collapses a Status into what a report shows.
func (s Status) Result() Result {
	switch {
	case s.IsNotRun(), s.IsRunning():
		return ResultUndefined
	case s.IsError():
		return ResultError
	case s.IsFailure():
		return ResultFailure
	default:
		return ResultOK
	}
}

func (s Status) ProgressState() ProgressState {
	switch {
	case s.IsRunning():
		return ProgressRunning
	case s.IsDone():
		return ProgressCompleted
	default:
		return ProgressNotStarted
	}
}

// Worst returns the most severe of two statuses, error before failure before anything else.
func (s Status) Worst(other Status) Status {
	rank := func(st Status) int {
		switch {
		case st.IsError():
			return 3
		case st.IsFailure():
			return 2
		case st == StatusOK:
			return 1
		default:
			return 0
		}
	}
	if rank(other) > rank(s) {
		return other
	}
	return s
}

type Result string

const (
	ResultUndefined Result = "UNDEFINED"
	ResultOK        Result = "OK"
	ResultFailure   Result = "FAILURE"
	ResultError     Result = "ERROR"
	ResultIgnored   Result = "IGNORED"
)

func StatusFromResult(r Result) Status {
	switch r {
	case ResultError:
		return StatusError
	case ResultFailure:
		return StatusFailure
	case ResultOK, ResultIgnored:
		return StatusOK
	default:
		return StatusNotRun
	}
}

type ProgressState string

const (
	ProgressNotStarted ProgressState = "Not Started"
	ProgressRunning    ProgressState = "Running"
	ProgressStopped    ProgressState = "Stopped"
	ProgressCompleted  ProgressState = "Completed"
)

// Outcome is the category a harness assigns to a finished scenario.
type Outcome string

const (
	OutcomePass                      Outcome = "PASS"
	OutcomeEqualityFailure           Outcome = "EQUALITY_FAILURE"
	OutcomeInequalityFailure         Outcome = "INEQUALITY_FAILURE"
	OutcomeExplicitFailure           Outcome = "EXPLICIT_FAILURE"
	OutcomePanic                     Outcome = "PANIC"
	OutcomeBooleanFailure            Outcome = "BOOLEAN_FAILURE"
	OutcomeBooleanFailureWithMessage Outcome = "BOOLEAN_FAILURE_WITH_MESSAGE"
	OutcomeExpectedPanic             Outcome = "EXPECTED_PANIC"
	OutcomeExpectedPanicMismatch     Outcome = "EXPECTED_PANIC_MISMATCH"
	OutcomeMissingPanic              Outcome = "MISSING_PANIC"
	OutcomeResultPass                Outcome = "RESULT_PASS"
	OutcomeResultError               Outcome = "RESULT_ERROR"
	OutcomeIgnored                   Outcome = "IGNORED"
	OutcomeNotRun                    Outcome = "NOT_RUN"
)

var outcomes = []Outcome{
	OutcomePass, OutcomeEqualityFailure, OutcomeInequalityFailure, OutcomeExplicitFailure,
	OutcomePanic, OutcomeBooleanFailure, OutcomeBooleanFailureWithMessage, OutcomeExpectedPanic,
	OutcomeExpectedPanicMismatch, OutcomeMissingPanic, OutcomeResultPass, OutcomeResultError,
	OutcomeIgnored, OutcomeNotRun,
}

// Known reports whether o is one of the outcomes a harness can assign.
func (o Outcome) Known() bool {
	return lo.Contains(outcomes, o)
}

// Status maps an outcome onto the element status.
// A raw panic is an error, every assertion or expectation miss is a failure.
func (o Outcome) Status() Status {
	switch o {
	case OutcomePass, OutcomeExpectedPanic, OutcomeResultPass, OutcomeIgnored:
		return StatusOK
	case OutcomePanic:
		return StatusError
	case OutcomeNotRun, "":
		return StatusNotRun
	default:
		return StatusFailure
	}
}

func (o Outcome) Passed() bool {
	return o.Status() == StatusOK
}
