package sink

import (
	"fmt"
	"log/slog"
	"scenario-lab/domain/event"
	"scenario-lab/observability"
	"scenario-lab/repositories"
)

// FailureIndexer makes the failures of a stored run searchable.
type FailureIndexer interface {
	Index(run repositories.RunRecord) error
}

// HistorySink stores a record of every finished run, stopped runs included.
type HistorySink struct {
	repository repositories.IHistoryRepository
	index      FailureIndexer
	monitor    *observability.Monitor
	log        *slog.Logger
}

// NewHistorySink builds the sink, monitor may be nil.
func NewHistorySink(repository repositories.IHistoryRepository, monitor *observability.Monitor, log *slog.Logger) HistorySink {
	return HistorySink{repository: repository, monitor: monitor, log: log}
}

// WithIndex also indexes the failures of every stored run.
func (h HistorySink) WithIndex(index FailureIndexer) HistorySink {
	h.index = index
	return h
}

func (h HistorySink) Handle(e event.Event) {
	switch evt := e.Payload.(type) {
	case event.RunEnded:
		if evt.Session == nil {
			return
		}
		record := repositories.FromSession(evt.Session)
		if h.monitor != nil {
			record.RSSBytes = h.monitor.PeakRSS()
			record.CPUPercent = h.monitor.Latest().CPUPercent
		}
		if err := h.repository.StoreRun(record); err != nil {
			h.log.Error("Unable to store run in history", "run", record.ID, "error", err)
			return
		}
		h.log.Debug(fmt.Sprintf("Run %s stored in history", record.ID))
		if h.index != nil {
			if err := h.index.Index(record); err != nil {
				h.log.Error("Unable to index run failures", "run", record.ID, "error", err)
			}
		}
	}
}
