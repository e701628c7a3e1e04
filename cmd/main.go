package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"scenario-lab/contract"
	"scenario-lab/domain"
	"scenario-lab/domain/event"
	"scenario-lab/harness"
	"scenario-lab/internal"
	"scenario-lab/observability"
	"scenario-lab/report"
	"scenario-lab/repositories"
	"scenario-lab/runtime"
	"scenario-lab/runtime/workers"
	"scenario-lab/scenarios"
	"scenario-lab/sink"
	"syscall"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitFailedScenarios = 1
	exitInfrastructure  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(exitInfrastructure)
	}
	os.Exit(code)
}

// run wires the harness, executes the catalogue and returns the exit code.
// Every deferred cleanup has run by the time main calls os.Exit.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return 0, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Reporting
	monitor, err := observability.NewMonitor(log)
	if err != nil {
		return 0, fmt.Errorf("resource monitor failed: %w", err)
	}
	console := report.NewConsole(os.Stdout, config.Colours).
		WithMonitor(monitor).
		WithOutput(config.ShowOutput).
		WithFilter(report.NewFilter(config.FailuresOnly, config.IgnoredOnly))
	counter := event.NewCounter()
	fanout := event.NewFanout(log,
		console,
		sink.NewLogSink(log),
		event.NewSlowCaseHandler(log, config.SlowCaseThreshold),
		event.NewWorkerRestartedAfterPanicHandler(log, counter),
	)

	// 4. Run history (BadgerDB), only when a path is configured
	var lastFailed []string
	if config.HistoryFilepath != "" {
		db, err := badger.Open(badger.DefaultOptions(config.HistoryFilepath).WithLoggingLevel(badger.WARNING))
		if err != nil {
			return 0, fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Debug("Closing BadgerDB...")
			_ = db.Close()
		}()
		repository := repositories.NewHistoryRepository(db, log, config.HistoryMaxRuns)
		historySink := sink.NewHistorySink(repository, monitor, log)

		// 4.bis Failure search index (Bluge), fed with every stored run
		if config.SearchIndexFilepath != "" {
			blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.SearchIndexFilepath))
			if err != nil {
				return 0, fmt.Errorf("failed to open bluge writer: %w", err)
			}
			defer func() {
				log.Debug("Closing Bluge...")
				_ = blugeWriter.Close()
			}()
			historySink = historySink.WithIndex(repositories.NewFailureIndex(blugeWriter, log))
		}
		fanout.Add(historySink)

		if config.RerunFailedFirst {
			if lastFailed, err = repositories.LastFailedCases(repository); err != nil {
				return 0, fmt.Errorf("reading last run: %w", err)
			}
		}
	}

	// 5. Scenarios
	selected := scenarios.Select(scenarios.Catalogue(scenarios.Options{
		Suites:    config.Suites(),
		Policy:    domain.GuessPolicy{LegacyMessages: config.GuessLegacyMessages},
		SlowDelay: config.SlowScenarioDelay,
	}), config.ScenarioFilter)
	if len(lastFailed) > 0 {
		selected = scenarios.FailedFirst(selected, lastFailed)
		log.Info(fmt.Sprintf("Running %d previously failed scenario(s) first", len(lastFailed)))
	}

	// 6. Heartbeat sampling the harness while scenarios run
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	heartbeatDone := make(chan struct{})
	go func() {
		workers.NewSupervisor(log, config.RestartInterval, fanout).
			Add(workers.NewHeartbeatWorker(log, monitor, config.HeartbeatInterval)).
			Run(heartbeatCtx)
		close(heartbeatDone)
	}()

	// 7. Run
	orchestrator := runtime.NewOrchestrator(log, config.RunName, contract.ExecutorFunc(harness.Execute),
		fanout, config.NumberOfWorkers, config.RestartInterval)
	session, err := orchestrator.Run(ctx, selected)
	stopHeartbeat()
	<-heartbeatDone
	if err != nil {
		return 0, fmt.Errorf("run failed: %w", err)
	}

	// 8. JUnit export
	if config.JUnitReportPath != "" {
		if err := writeJUnit(config.JUnitReportPath, session); err != nil {
			return 0, err
		}
		log.Info("JUnit report written", "path", config.JUnitReportPath)
	}

	if !session.Passed() {
		return exitFailedScenarios, nil
	}
	return 0, nil
}

func writeJUnit(path string, session *domain.RunSession) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating junit report: %w", err)
	}
	if err := report.WriteJUnit(f, session); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
