package scenarios

import (
	"context"
	"scenario-lab/domain"
	"scenario-lab/harness"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

var expectedOutcomes = map[string]domain.Outcome{
	"it_works":                                     domain.OutcomePass,
	"it_fails_on_assert_eq":                        domain.OutcomeEqualityFailure,
	"it_fails_on_assert_ne":                        domain.OutcomeInequalityFailure,
	"it_fails_on_panic":                            domain.OutcomeExplicitFailure,
	"it_fails_on_assert":                           domain.OutcomeBooleanFailure,
	"it_fails_on_assert_with_message":              domain.OutcomeBooleanFailureWithMessage,
	"fails_on_should_panic_less_than_1":            domain.OutcomeExpectedPanic,
	"it_it_fails_on_should_panic_greater_than_100": domain.OutcomeExpectedPanic,
	"it_works_again":                               domain.OutcomeResultPass,
	"it_fails_on_result":                           domain.OutcomeResultError,
	"this_test_will_pass":                          domain.OutcomePass,
	"this_test_will_fail":                          domain.OutcomeEqualityFailure,
	"should_panic_without_panic":                   domain.OutcomeMissingPanic,
	"should_panic_with_wrong_message":              domain.OutcomeExpectedPanicMismatch,
}

func TestCatalogue_Builds_Every_Suite(t *testing.T) {
	req := require.New(t)

	all := Catalogue(Options{})

	req.Len(all, len(DefaultSuites)*len(expectedOutcomes))
	req.Equal("tests1", all[0].Suite)
	req.Equal("tests2", all[len(all)-1].Suite)
}

func TestCatalogue_Deduplicates_Suites(t *testing.T) {
	req := require.New(t)
	req.Len(Catalogue(Options{Suites: []string{"a", "a"}}), len(expectedOutcomes))
}

func TestCatalogue_Outcomes(t *testing.T) {
	for _, s := range Catalogue(Options{Suites: []string{"tests1"}}) {
		t.Run(s.Name, func(t *testing.T) {
			t.Parallel()
			req := require.New(t)
			expected, ok := expectedOutcomes[s.Name]
			req.True(ok, "unexpected scenario %s", s.Name)

			report := harness.Execute(context.Background(), s)

			req.Equal(expected, report.Outcome)
		})
	}
}

func TestCatalogue_Legacy_Messages_Turn_Expected_Panics_Into_Mismatches(t *testing.T) {
	req := require.New(t)
	all := Catalogue(Options{Suites: []string{"tests1"}, Policy: domain.GuessPolicy{LegacyMessages: true}})

	for _, s := range Select(all, "should_panic") {
		report := harness.Execute(context.Background(), s)
		switch s.Name {
		case "should_panic_without_panic":
			req.Equal(domain.OutcomeMissingPanic, report.Outcome)
		case "should_panic_with_wrong_message":
			// the swapped text now matches what this scenario expects
			req.Equal(domain.OutcomeExpectedPanic, report.Outcome)
		default:
			req.Equal(domain.OutcomeExpectedPanicMismatch, report.Outcome, s.Name)
		}
	}
}

func TestCatalogue_Compute_Ten_Writes_Diagnostics(t *testing.T) {
	req := require.New(t)
	selected := Select(Catalogue(Options{Suites: []string{"tests1"}}), "this_test_will_fail")
	req.Len(selected, 1)

	report := harness.Execute(context.Background(), selected[0])

	req.Equal("I got the value 8\n", report.Output)
	req.Equal("5", report.Trace.Expected)
	req.Equal("10", report.Trace.Actual)
}

func TestSelect(t *testing.T) {
	req := require.New(t)
	all := Catalogue(Options{})

	req.Len(Select(all, ""), len(all))
	req.Len(Select(all, "tests2::it_works"), 2)
	req.Empty(Select(all, "nothing"))
}

func TestFailedFirst(t *testing.T) {
	req := require.New(t)
	all := Catalogue(Options{})

	// Given the failures of a previous run, one of them no longer in the catalogue
	failed := []string{"tests2::it_fails_on_result", "tests1::it_fails_on_assert_eq", "tests3::gone"}

	// When reordering the catalogue
	ordered := FailedFirst(all, failed)

	// Then the failed scenarios come first, in catalogue order, and nothing is lost
	req.Len(ordered, len(all))
	req.Equal("tests1::it_fails_on_assert_eq", ordered[0].QualifiedName())
	req.Equal("tests2::it_fails_on_result", ordered[1].QualifiedName())
	req.Equal("tests1::it_works", ordered[2].QualifiedName())
	req.ElementsMatch(names(all), names(ordered))

	// And without previous failures the order is unchanged
	req.Equal(names(all), names(FailedFirst(all, nil)))
}

func names(scenarios []harness.Scenario) []string {
	return lo.Map(scenarios, func(s harness.Scenario, _ int) string { return s.QualifiedName() })
}
