package e2e

import (
	"bytes"
	"fmt"
	"log/slog"
	"scenario-lab/contract"
	"scenario-lab/domain/event"
	"scenario-lab/harness"
	"scenario-lab/observability"
	"scenario-lab/report"
	"scenario-lab/repositories"
	"scenario-lab/runtime"
	"scenario-lab/sink"
	"testing"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseHarnessSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHarnessSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

// Step prints a colorized header in the logs then runs fn as a subtest
func (s *BaseHarnessSuite) Step(name string, fn func()) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
	s.Run(name, fn)
}

// Harness is a fully wired harness: orchestrator, console, history, search index and counters.
type Harness struct {
	Orchestrator *runtime.Orchestrator
	History      repositories.HistoryRepository
	Index        repositories.FailureIndex
	Counter      *event.Counter
	Console      *bytes.Buffer
}

// NewHarness wires every sink the command line wires, on a temporary badger and bluge index.
func (s *BaseHarnessSuite) NewHarness(t *testing.T, name string) Harness {
	log := logs.GetLoggerFromLevel(slog.LevelWarn)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	monitor, err := observability.NewMonitor(log)
	s.Require().NoError(err)
	_, err = monitor.Sample()
	s.Require().NoError(err)

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	s.Require().NoError(err)
	t.Cleanup(func() { _ = blugeWriter.Close() })

	history := repositories.NewHistoryRepository(db, log, 10)
	index := repositories.NewFailureIndex(blugeWriter, log)
	counter := event.NewCounter()
	console := &bytes.Buffer{}
	fanout := event.NewFanout(log,
		counter,
		report.NewConsole(console, false).WithMonitor(monitor),
		sink.NewLogSink(log),
		sink.NewHistorySink(history, monitor, log).WithIndex(index),
	)
	return Harness{
		Orchestrator: runtime.NewOrchestrator(log, name, contract.ExecutorFunc(harness.Execute), fanout, s.Config.Workers, 0),
		History:      history,
		Index:        index,
		Counter:      counter,
		Console:      console,
	}
}
