package errors

import "fmt"

var (
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrInvalidPayload  = fmt.Errorf("invalid payload")
	ErrGuessOutOfRange = fmt.Errorf("guess value out of range")
	ErrNoScenarios     = fmt.Errorf("no scenarios to run")
	ErrUnknownNode     = fmt.Errorf("unknown junit node")
	ErrRunNotFound     = fmt.Errorf("run not found")
	ErrInvalidConfig   = fmt.Errorf("invalid configuration")
)
