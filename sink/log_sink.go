package sink

import (
	"log/slog"
	"scenario-lab/domain/event"
)

// LogSink writes one structured log line per event.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) LogSink {
	return LogSink{log: log}
}

func (l LogSink) Handle(e event.Event) {
	switch evt := e.Payload.(type) {
	case event.RunStarted:
		l.log.Info("Run started", "session", evt.SessionID, "name", evt.Name, "scenarios", evt.Count)
	case event.TestStarted:
		l.log.Debug("Scenario started", "scenario", evt.Case.QualifiedName())
	case event.TestFailed:
		attrs := []any{"scenario", evt.Case.QualifiedName(), "outcome", evt.Case.Outcome}
		if evt.Case.Trace != nil {
			attrs = append(attrs, "message", evt.Case.Trace.Message)
		}
		l.log.Debug("Scenario failed", attrs...)
	case event.TestEnded:
		l.log.Debug("Scenario ended",
			"scenario", evt.Case.QualifiedName(),
			"status", evt.Case.Status,
			"duration_ms", evt.Case.Duration.Milliseconds(),
		)
	case event.RunEnded:
		l.log.Info("Run finished",
			"session", evt.SessionID,
			"type", e.Type,
			"total", evt.Counts.Total,
			"failures", evt.Counts.Failures,
			"errors", evt.Counts.Errors,
			"ignored", evt.Counts.Ignored,
			"duration", evt.Duration,
		)
	case event.WorkerRestartedAfterPanic:
		l.log.Warn("Worker restarted after panic", "worker", evt.WorkerName)
	default:
		l.log.Debug("Unhandled event", "type", e.Type)
	}
}
