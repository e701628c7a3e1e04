//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"scenario-lab/domain"
	"scenario-lab/harness"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Workers exposing GetName are named by it instead.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if named, ok := w.(interface{ GetName() WorkerName }); ok && named.GetName() != "" {
		return string(named.GetName())
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Executor runs a single scenario behind the isolation boundary.
type Executor interface {
	Execute(ctx context.Context, s harness.Scenario) domain.CaseReport
}

type ExecutorFunc func(ctx context.Context, s harness.Scenario) domain.CaseReport

func (f ExecutorFunc) Execute(ctx context.Context, s harness.Scenario) domain.CaseReport {
	return f(ctx, s)
}

type IOrchestrator interface {
	Run(ctx context.Context, scenarios []harness.Scenario) (*domain.RunSession, error)
}
