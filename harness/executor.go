package harness

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"scenario-lab/check"
	"scenario-lab/domain"
	"strings"
	"time"

	"github.com/samber/lo"
)

const missingPanicMessage = "scenario did not panic as expected"

// Frames owned by the harness or the Go runtime, dropped from failure traces.
var traceFilterPatterns = []string{
	"runtime/debug.",
	"runtime.gopanic",
	"runtime.panicmem",
	"runtime.sigpanic",
	"runtime.goexit",
	"panic(",
	"scenario-lab/harness.invoke",
	"scenario-lab/harness.Execute",
	"scenario-lab/runtime",
	"testing.",
	"created by ",
}

// Execute runs one scenario and classifies how it ended.
// It is the isolation boundary of the harness: a panicking scenario is
// recovered here and never reaches the caller.
func Execute(ctx context.Context, s Scenario) domain.CaseReport {
	startedAt := time.Now().UTC()
	if s.Ignored {
		return domain.CaseReport{Outcome: domain.OutcomeIgnored, StartedAt: startedAt}
	}

	t := newT(ctx, s.QualifiedName())
	r := invoke(s.Run, t)

	outcome, trace := guardedClassify(s, r)
	return domain.CaseReport{
		Outcome:   outcome,
		Trace:     trace,
		Output:    t.captured(),
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
}

type invocation struct {
	err       error
	panicked  bool
	recovered any
	stack     string
}

func invoke(run RunFunc, t *T) (inv invocation) {
	defer func() {
		if r := recover(); r != nil {
			inv.panicked = true
			inv.recovered = r
			inv.stack = filterStack(string(debug.Stack()))
		}
	}()
	if run == nil {
		return invocation{}
	}
	inv.err = run(t)
	return inv
}

// guardedClassify turns a failure while describing the scenario's result,
// such as a typed-nil error or an Error method that panics, into a PANIC.
func guardedClassify(s Scenario, inv invocation) (outcome domain.Outcome, trace *domain.FailureTrace) {
	defer func() {
		if r := recover(); r != nil {
			value := any(inv.err)
			if inv.panicked {
				value = inv.recovered
			}
			message := fmt.Sprintf("%#v", value)
			outcome = domain.OutcomePanic
			trace = &domain.FailureTrace{
				Message: message,
				Trace:   fmt.Sprintf("%s\nfailed to describe scenario result: %v", message, r),
			}
		}
	}()
	return classify(s, inv)
}

func classify(s Scenario, inv invocation) (domain.Outcome, *domain.FailureTrace) {
	if s.ShouldPanic != nil {
		return classifyExpectedPanic(*s.ShouldPanic, inv)
	}
	if inv.panicked {
		return classifyPanic(inv)
	}
	if inv.err != nil {
		return domain.OutcomeResultError, &domain.FailureTrace{Message: inv.err.Error(), Trace: fmt.Sprintf("Error: %+v", inv.err)}
	}
	if s.ReturnsResult {
		return domain.OutcomeResultPass, nil
	}
	return domain.OutcomePass, nil
}

func classifyExpectedPanic(expectation PanicExpectation, inv invocation) (domain.Outcome, *domain.FailureTrace) {
	if !inv.panicked {
		trace := &domain.FailureTrace{Message: missingPanicMessage, Expected: expectation.String()}
		if inv.err != nil {
			trace.Trace = inv.err.Error()
		}
		return domain.OutcomeMissingPanic, trace
	}

	message := panicMessage(inv.recovered)
	matcher, err := newMessageMatcher(expectation.Substrings)
	if err != nil {
		return domain.OutcomePanic, &domain.FailureTrace{Message: fmt.Sprintf("invalid panic expectation: %v", err)}
	}
	if matcher.Match(message) {
		return domain.OutcomeExpectedPanic, nil
	}
	return domain.OutcomeExpectedPanicMismatch, &domain.FailureTrace{
		Message:  "panic did not contain expected string",
		Trace:    fmt.Sprintf("panic message: %q\nexpected substring: %s", message, expectation.String()),
		Expected: expectation.String(),
		Actual:   message,
	}
}

func classifyPanic(inv invocation) (domain.Outcome, *domain.FailureTrace) {
	message := panicMessage(inv.recovered)
	trace := &domain.FailureTrace{Message: message, Trace: message + "\n" + inv.stack}

	if err, ok := inv.recovered.(error); ok {
		var assertion *check.AssertionError
		if stderrors.As(err, &assertion) {
			return classifyAssertion(assertion, trace)
		}
		return domain.OutcomePanic, trace
	}
	if _, ok := inv.recovered.(string); ok {
		return domain.OutcomeExplicitFailure, trace
	}
	return domain.OutcomePanic, trace
}

func classifyAssertion(assertion *check.AssertionError, trace *domain.FailureTrace) (domain.Outcome, *domain.FailureTrace) {
	switch assertion.Kind {
	case check.KindEqual:
		trace.Expected, trace.Actual = assertion.Expected, assertion.Actual
		if assertion.Diff != "" {
			trace.Trace = trace.Message + "\ndiff (-left +right):\n" + assertion.Diff
		}
		return domain.OutcomeEqualityFailure, trace
	case check.KindNotEqual:
		trace.Expected, trace.Actual = assertion.Expected, assertion.Actual
		return domain.OutcomeInequalityFailure, trace
	case check.KindTrue:
		if assertion.HasMessage() {
			return domain.OutcomeBooleanFailureWithMessage, trace
		}
		return domain.OutcomeBooleanFailure, trace
	default:
		return domain.OutcomeExplicitFailure, trace
	}
}

func panicMessage(r any) string {
	switch v := r.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprint(v)
	}
}

// filterStack drops the frames listed in traceFilterPatterns along with
// their source lines.
func filterStack(stack string) string {
	lines := strings.Split(strings.TrimRight(stack, "\n"), "\n")
	kept := make([]string, 0, len(lines))
	skipping := false
	for _, line := range lines {
		if strings.HasPrefix(line, "\t") {
			if !skipping {
				kept = append(kept, line)
			}
			continue
		}
		skipping = lo.SomeBy(traceFilterPatterns, func(pattern string) bool {
			return strings.HasPrefix(line, pattern)
		})
		if !skipping {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
