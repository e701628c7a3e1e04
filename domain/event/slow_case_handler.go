package event

import (
	"log/slog"
	"time"
)

// SlowCaseHandler warns about cases running longer than the threshold.
type SlowCaseHandler struct {
	log       *slog.Logger
	threshold time.Duration
}

func NewSlowCaseHandler(log *slog.Logger, threshold time.Duration) *SlowCaseHandler {
	return &SlowCaseHandler{log: log, threshold: threshold}
}

func (h *SlowCaseHandler) Handle(e Event) {
	payload, ok := e.Payload.(TestEnded)
	if !ok || h.threshold <= 0 {
		return
	}
	if payload.Case.Duration > h.threshold {
		h.log.Warn("slow scenario detected",
			"scenario", payload.Case.QualifiedName(),
			"duration_ms", payload.Case.Duration.Milliseconds(),
			"threshold_ms", h.threshold.Milliseconds(),
		)
	}
}
