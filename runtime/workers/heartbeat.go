package workers

import (
	"context"
	"log/slog"
	"scenario-lab/contract"
	"scenario-lab/observability"
	"time"
)

const defaultHeartbeatInterval = time.Second

// HeartbeatWorker samples the harness resources while a run is in progress.
type HeartbeatWorker struct {
	log      *slog.Logger
	monitor  *observability.Monitor
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, monitor *observability.Monitor, interval time.Duration) *HeartbeatWorker {
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}
	return &HeartbeatWorker{log: log, monitor: monitor, interval: interval}
}

func (w *HeartbeatWorker) GetName() contract.WorkerName {
	return "heartbeat"
}

// Run samples once immediately then on every tick until ctx is done.
func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Debug("Starting heartbeat worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sample()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w *HeartbeatWorker) sample() {
	if _, err := w.monitor.Sample(); err != nil {
		w.log.Error("Failed to collect self stats", "err", err)
	}
}
