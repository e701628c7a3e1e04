// Package scenarios holds the demonstration scenarios run by the harness.
//
// The same set is registered once per suite name; suites never share state,
// every closure is built fresh for its suite.
package scenarios

import (
	"errors"
	"scenario-lab/check"
	"scenario-lab/domain"
	"scenario-lab/harness"
	"strings"
	"time"

	"github.com/samber/lo"
)

var errTwoPlusTwo = errors.New("two plus two does not equal four")

var DefaultSuites = []string{"tests1", "tests2"}

type Options struct {
	Suites []string
	Policy domain.GuessPolicy
	// SlowDelay is slept by the two slow scenarios, zero disables it.
	SlowDelay time.Duration
}

// Catalogue returns every scenario for every suite, suite after suite.
func Catalogue(opts Options) []harness.Scenario {
	suites := opts.Suites
	if len(suites) == 0 {
		suites = DefaultSuites
	}
	return lo.FlatMap(lo.Uniq(suites), func(suite string, _ int) []harness.Scenario {
		return build(suite, opts.Policy, opts.SlowDelay)
	})
}

func build(suite string, policy domain.GuessPolicy, slowDelay time.Duration) []harness.Scenario {
	scenarios := []harness.Scenario{
		{Name: "it_works", Run: func(t *harness.T) error {
			check.Equal(4, 2+2)
			return nil
		}},
		{Name: "it_fails_on_assert_eq", Run: func(t *harness.T) error {
			t.Sleep(slowDelay)
			check.Equal(2+2, 5)
			return nil
		}},
		{Name: "it_fails_on_assert_ne", Run: func(t *harness.T) error {
			t.Sleep(slowDelay)
			check.NotEqual(2+2, 4)
			return nil
		}},
		{Name: "it_fails_on_panic", Run: func(t *harness.T) error {
			panic("Make this test fail")
		}},
		{Name: "it_fails_on_assert", Run: func(t *harness.T) error {
			testVariable := false
			check.True(testVariable)
			return nil
		}},
		{Name: "it_fails_on_assert_with_message", Run: func(t *harness.T) error {
			testVariable := false
			check.True(testVariable, "The value of `test_variable` is FALSE!")
			return nil
		}},
		{
			Name:        "fails_on_should_panic_less_than_1",
			ShouldPanic: harness.ExpectPanic("Guess value must be greater than or equal to 1"),
			Run: func(t *harness.T) error {
				policy.New(0)
				return nil
			},
		},
		{
			Name:        "it_it_fails_on_should_panic_greater_than_100",
			ShouldPanic: harness.ExpectPanic("Guess value must be less than or equal to 100"),
			Run: func(t *harness.T) error {
				policy.New(2000)
				return nil
			},
		},
		{Name: "it_works_again", ReturnsResult: true, Run: func(t *harness.T) error {
			a := 2 + 2
			if a == 4 {
				return nil
			}
			return errTwoPlusTwo
		}},
		{Name: "it_fails_on_result", ReturnsResult: true, Run: func(t *harness.T) error {
			a := 2 + 2
			if a == 5 {
				return nil
			}
			return errTwoPlusTwo
		}},
		{Name: "this_test_will_pass", Run: func(t *harness.T) error {
			value := domain.ComputeTen(t.Output(), 4)
			check.Equal(10, value)
			return nil
		}},
		{Name: "this_test_will_fail", Run: func(t *harness.T) error {
			value := domain.ComputeTen(t.Output(), 8)
			check.Equal(5, value)
			return nil
		}},
		{
			Name:        "should_panic_without_panic",
			ShouldPanic: harness.ExpectPanic("Guess value must be greater than or equal to 1"),
			Run: func(t *harness.T) error {
				policy.New(50)
				return nil
			},
		},
		{
			Name:        "should_panic_with_wrong_message",
			ShouldPanic: harness.ExpectPanic("Guess value must be less than or equal to 100"),
			Run: func(t *harness.T) error {
				policy.New(-5)
				return nil
			},
		},
	}
	for i := range scenarios {
		scenarios[i].Suite = suite
	}
	return scenarios
}

// Select keeps the scenarios whose qualified name contains filter.
func Select(scenarios []harness.Scenario, filter string) []harness.Scenario {
	if filter == "" {
		return scenarios
	}
	return lo.Filter(scenarios, func(s harness.Scenario, _ int) bool {
		return strings.Contains(s.QualifiedName(), filter)
	})
}

// FailedFirst moves the scenarios named in failed ahead of the others.
// Both groups keep their catalogue order; names without a scenario are ignored.
func FailedFirst(scenarios []harness.Scenario, failed []string) []harness.Scenario {
	if len(failed) == 0 {
		return scenarios
	}
	first, rest := lo.FilterReject(scenarios, func(s harness.Scenario, _ int) bool {
		return lo.Contains(failed, s.QualifiedName())
	})
	return append(first, rest...)
}
