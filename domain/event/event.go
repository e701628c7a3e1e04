package event

import (
	"scenario-lab/domain"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	RunStartedType          Type = "RUN_STARTED"
	TestStartedType         Type = "TEST_STARTED"
	TestFailedType          Type = "TEST_FAILED"
	TestEndedType           Type = "TEST_ENDED"
	RunEndedType            Type = "RUN_ENDED"
	RunStoppedType          Type = "RUN_STOPPED"
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
)

type Event struct {
	Type    Type
	At      time.Time
	Payload any
}

func New(t Type, payload any) Event {
	return Event{Type: t, At: time.Now().UTC(), Payload: payload}
}

type RunStarted struct {
	SessionID uuid.UUID
	Name      string
	Count     int
}

type TestStarted struct {
	SessionID uuid.UUID
	Case      domain.TestCase
}

// TestFailed is emitted right before TestEnded for cases ending in failure or error.
type TestFailed struct {
	SessionID uuid.UUID
	Case      domain.TestCase
}

type TestEnded struct {
	SessionID uuid.UUID
	Case      domain.TestCase
}

// RunEnded is the payload of both RunEndedType and RunStoppedType.
type RunEnded struct {
	SessionID uuid.UUID
	Counts    domain.Counts
	Duration  time.Duration
	Stopped   bool
	Session   *domain.RunSession
}

type WorkerRestartedAfterPanic struct {
	WorkerName string
}
