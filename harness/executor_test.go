package harness

import (
	"context"
	"fmt"
	"scenario-lab/check"
	"scenario-lab/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type brokenError struct {
	reason *string
}

func (e *brokenError) Error() string { return *e.reason }

func scenario(run RunFunc) Scenario {
	return Scenario{Suite: "suite", Name: "case", Run: run}
}

func TestExecute_Pass(t *testing.T) {
	req := require.New(t)

	report := Execute(context.Background(), scenario(func(t *T) error {
		check.Equal(4, 2+2)
		return nil
	}))

	req.Equal(domain.OutcomePass, report.Outcome)
	req.Nil(report.Trace)
	req.False(report.StartedAt.IsZero())
}

func TestExecute_Assertion_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		run      RunFunc
		expected domain.Outcome
	}{
		{"equality", func(t *T) error { check.Equal(2+2, 5); return nil }, domain.OutcomeEqualityFailure},
		{"inequality", func(t *T) error { check.NotEqual(2+2, 4); return nil }, domain.OutcomeInequalityFailure},
		{"boolean", func(t *T) error { check.True(false); return nil }, domain.OutcomeBooleanFailure},
		{"boolean with message", func(t *T) error { check.True(false, "is FALSE"); return nil }, domain.OutcomeBooleanFailureWithMessage},
		{"check fail", func(t *T) error { check.Fail("stop"); return nil }, domain.OutcomeExplicitFailure},
		{"raw panic", func(t *T) error { panic("Make this test fail") }, domain.OutcomeExplicitFailure},
		{"error panic", func(t *T) error { panic(fmt.Errorf("boom")) }, domain.OutcomePanic},
		{"runtime panic", func(t *T) error {
			var m map[string]int
			m["x"] = 1
			return nil
		}, domain.OutcomePanic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			report := Execute(context.Background(), scenario(tt.run))

			req.Equal(tt.expected, report.Outcome)
			req.NotNil(report.Trace)
			req.NotEmpty(report.Trace.Message)
			req.False(report.Outcome.Passed())
		})
	}
}

func TestExecute_Equality_Failure_Keeps_Comparison(t *testing.T) {
	req := require.New(t)

	report := Execute(context.Background(), scenario(func(t *T) error {
		check.Equal(5, domain.ComputeTen(t.Output(), 8))
		return nil
	}))

	req.Equal(domain.OutcomeEqualityFailure, report.Outcome)
	req.True(report.Trace.IsComparison())
	req.Equal("5", report.Trace.Expected)
	req.Equal("10", report.Trace.Actual)
	req.Equal("I got the value 8\n", report.Output)
	req.Equal(domain.StatusFailure, report.Outcome.Status())
}

func TestExecute_Validation_Panic_Is_An_Error(t *testing.T) {
	req := require.New(t)

	report := Execute(context.Background(), scenario(func(t *T) error {
		domain.NewGuess(0)
		return nil
	}))

	req.Equal(domain.OutcomePanic, report.Outcome)
	req.Equal(domain.StatusError, report.Outcome.Status())
	req.Contains(report.Trace.Message, "greater than or equal to 1")
}

func TestExecute_Result_Based(t *testing.T) {
	req := require.New(t)

	ok := scenario(func(t *T) error { return nil })
	ok.ReturnsResult = true
	req.Equal(domain.OutcomeResultPass, Execute(context.Background(), ok).Outcome)

	failing := scenario(func(t *T) error { return fmt.Errorf("two plus two does not equal four") })
	failing.ReturnsResult = true
	report := Execute(context.Background(), failing)
	req.Equal(domain.OutcomeResultError, report.Outcome)
	req.Equal("two plus two does not equal four", report.Trace.Message)
	req.Equal(domain.StatusFailure, report.Outcome.Status())
}

func TestExecute_Expected_Panic(t *testing.T) {
	tests := []struct {
		name        string
		value       int
		expectation *PanicExpectation
		expected    domain.Outcome
	}{
		{"lower bound matches", 0, ExpectPanic("Guess value must be greater than or equal to 1"), domain.OutcomeExpectedPanic},
		{"upper bound matches", 2000, ExpectPanic("Guess value must be less than or equal to 100"), domain.OutcomeExpectedPanic},
		{"any abort", 0, ExpectPanic(), domain.OutcomeExpectedPanic},
		{"one of several", 2000, ExpectPanic("nope", "less than or equal to 100"), domain.OutcomeExpectedPanic},
		{"wrong message", 0, ExpectPanic("less than or equal to 100"), domain.OutcomeExpectedPanicMismatch},
		{"no panic", 50, ExpectPanic("greater than or equal to 1"), domain.OutcomeMissingPanic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			s := scenario(func(t *T) error {
				domain.NewGuess(tt.value)
				return nil
			})
			s.ShouldPanic = tt.expectation

			report := Execute(context.Background(), s)

			req.Equal(tt.expected, report.Outcome)
		})
	}
}

func TestExecute_Mismatch_Reports_Both_Messages(t *testing.T) {
	req := require.New(t)
	s := scenario(func(t *T) error {
		domain.GuessPolicy{LegacyMessages: true}.New(0)
		return nil
	})
	s.ShouldPanic = ExpectPanic("Guess value must be greater than or equal to 1")

	report := Execute(context.Background(), s)

	req.Equal(domain.OutcomeExpectedPanicMismatch, report.Outcome)
	req.Equal("Guess value must be less than or equal to 100, got 0.", report.Trace.Actual)
	req.Contains(report.Trace.Expected, "greater than or equal to 1")
}

func TestExecute_Ignored_Never_Runs(t *testing.T) {
	req := require.New(t)
	called := false
	s := scenario(func(t *T) error {
		called = true
		return nil
	})
	s.Ignored = true

	report := Execute(context.Background(), s)

	req.False(called)
	req.Equal(domain.OutcomeIgnored, report.Outcome)
}

func TestExecute_Sleep_Returns_On_Cancel(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	report := Execute(ctx, scenario(func(t *T) error {
		t.Sleep(5 * time.Second)
		t.Logf("woke up")
		return nil
	}))

	req.Less(time.Since(start), time.Second)
	req.Equal(domain.OutcomePass, report.Outcome)
	req.Equal("woke up\n", report.Output)
}

func TestExecute_Nil_Body_Passes(t *testing.T) {
	req := require.New(t)
	req.Equal(domain.OutcomePass, Execute(context.Background(), Scenario{Suite: "s", Name: "n"}).Outcome)
}

func TestExecute_Typed_Nil_Error_Is_Contained(t *testing.T) {
	req := require.New(t)
	s := scenario(func(t *T) error {
		var err *brokenError
		return err
	})
	s.ReturnsResult = true

	var report domain.CaseReport
	req.NotPanics(func() { report = Execute(context.Background(), s) })

	req.Equal(domain.OutcomePanic, report.Outcome)
	req.Equal(domain.StatusError, report.Outcome.Status())
	req.Contains(report.Trace.Message, "brokenError")
}

func TestExecute_Panicking_Error_Method_Is_Contained(t *testing.T) {
	tests := []struct {
		name        string
		expectation *PanicExpectation
	}{
		{"unexpected panic", nil},
		{"expected panic", ExpectPanic("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			s := scenario(func(t *T) error { panic(&brokenError{}) })
			s.ShouldPanic = tt.expectation

			var report domain.CaseReport
			req.NotPanics(func() { report = Execute(context.Background(), s) })

			req.Equal(domain.OutcomePanic, report.Outcome)
			req.NotEmpty(report.Trace.Message)
		})
	}
}

func TestExecute_Panic_Trace_Drops_Harness_Frames(t *testing.T) {
	req := require.New(t)

	report := Execute(context.Background(), scenario(func(t *T) error {
		panic(fmt.Errorf("boom"))
	}))

	req.Equal(domain.OutcomePanic, report.Outcome)
	req.Contains(report.Trace.Trace, "TestExecute_Panic_Trace_Drops_Harness_Frames")
	req.NotContains(report.Trace.Trace, "runtime/debug.Stack")
	req.NotContains(report.Trace.Trace, "harness.invoke")
	req.NotContains(report.Trace.Trace, "harness.Execute")
}

func TestFilterStack(t *testing.T) {
	req := require.New(t)
	stack := `goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
scenario-lab/harness.invoke.func1()
	/src/harness/executor.go:68 +0x65
panic({0x6b2f20?, 0xc000012345?})
	/usr/local/go/src/runtime/panic.go:785 +0x132
scenario-lab/domain.NewGuess(0x0)
	/src/domain/guess.go:40 +0x1a5
scenario-lab/scenarios.guessTooSmall(0xc0000a2000)
	/src/scenarios/tests2.go:30 +0x1d
scenario-lab/harness.invoke(0xc0000a2000?, 0xc0000a2000)
	/src/harness/executor.go:74 +0x57
scenario-lab/harness.Execute({0x7a1c08, 0xc000014050}, {...})
	/src/harness/executor.go:43 +0x16a
scenario-lab/runtime/workers.(*PoolUnitWorker).Run(0xc000120000, {0x7a1c08, 0xc000014050})
	/src/runtime/workers/pool_unit.go:90 +0x2d0
created by scenario-lab/runtime.(*Supervisor).Start in goroutine 1
	/src/runtime/supervisor.go:60 +0x1e5
`

	filtered := filterStack(stack)

	req.Equal(`goroutine 7 [running]:
scenario-lab/domain.NewGuess(0x0)
	/src/domain/guess.go:40 +0x1a5
scenario-lab/scenarios.guessTooSmall(0xc0000a2000)
	/src/scenarios/tests2.go:30 +0x1d`, filtered)
}
