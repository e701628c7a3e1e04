package event

import (
	"fmt"
	"log/slog"
)

// Handler Each kind of event has his own handler
// Based on the Chain of responsibility pattern
type Handler interface {
	Handle(event Event)
}

// Fanout forwards every event to all of its handlers, in order.
// A panicking handler is logged and skipped, the next ones still receive the event.
type Fanout struct {
	log      *slog.Logger
	handlers []Handler
}

func NewFanout(log *slog.Logger, handlers ...Handler) *Fanout {
	return &Fanout{log: log, handlers: handlers}
}

func (f *Fanout) Add(handlers ...Handler) *Fanout {
	f.handlers = append(f.handlers, handlers...)
	return f
}

func (f *Fanout) Handle(event Event) {
	for _, h := range f.handlers {
		f.dispatch(h, event)
	}
}

func (f *Fanout) dispatch(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("Event handler panicked", "type", event.Type, "handler", fmt.Sprintf("%T", h), "panic", r)
		}
	}()
	h.Handle(event)
}
