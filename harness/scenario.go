package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

// RunFunc is the body of a scenario. Aborting scenarios panic, result based
// scenarios return an error.
type RunFunc func(t *T) error

// PanicExpectation marks a scenario that must abort. The abort message has to
// contain one of Substrings; an empty list accepts any abort.
type PanicExpectation struct {
	Substrings []string
}

func ExpectPanic(substrings ...string) *PanicExpectation {
	return &PanicExpectation{Substrings: lo.Compact(substrings)}
}

func (p PanicExpectation) String() string {
	quoted := lo.Map(p.Substrings, func(s string, _ int) string { return fmt.Sprintf("%q", s) })
	return strings.Join(quoted, " or ")
}

type Scenario struct {
	Suite string
	Name  string
	Run   RunFunc
	// ReturnsResult marks scenarios whose verdict is the returned error.
	ReturnsResult bool
	ShouldPanic   *PanicExpectation
	Ignored       bool
}

func (s Scenario) QualifiedName() string {
	return s.Suite + "::" + s.Name
}

// T is handed to a running scenario.
type T struct {
	ctx  context.Context
	name string
	mu   sync.Mutex
	out  bytes.Buffer
}

func newT(ctx context.Context, name string) *T {
	return &T{ctx: ctx, name: name}
}

func (t *T) Context() context.Context {
	return t.ctx
}

func (t *T) Name() string {
	return t.name
}

// Output is the diagnostic stream of the scenario, captured in its report.
func (t *T) Output() io.Writer {
	return t
}

func (t *T) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.Write(p)
}

func (t *T) Logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, _ = t.Write([]byte(line))
}

// Sleep blocks for d or until the run is cancelled.
func (t *T) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-t.ctx.Done():
	case <-timer.C:
	}
}

func (t *T) captured() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.String()
}
