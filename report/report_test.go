package report

import (
	"scenario-lab/domain"
	"time"
)

var startedAt = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// sampleSession builds a stopped run covering every kind of case.
func sampleSession() *domain.RunSession {
	session := domain.NewRunSession("sample")
	passing := session.AddCase("tests1", "it_works")
	equality := session.AddCase("tests1", "this_test_will_fail")
	crashed := session.AddCase("tests2", "it_fails_on_panic")
	ignored := session.AddCase("tests2", "ignored_scenario")
	session.AddCase("tests2", "it_works_again")

	session.Start(startedAt)
	end := func(id string, report domain.CaseReport) {
		session.CaseStarted(id, startedAt)
		session.CaseEnded(id, report)
	}
	end(passing, domain.CaseReport{Outcome: domain.OutcomePass, Duration: 250 * time.Millisecond})
	end(equality, domain.CaseReport{
		Outcome:  domain.OutcomeEqualityFailure,
		Duration: 1500 * time.Millisecond,
		Output:   "I got the value 4\n",
		Trace: &domain.FailureTrace{
			Message:  "assertion `left == right` failed",
			Trace:    "assertion `left == right` failed\n  left: 10\n right: 11",
			Expected: "10",
			Actual:   "11",
		},
	})
	end(crashed, domain.CaseReport{
		Outcome:  domain.OutcomePanic,
		Duration: 5 * time.Millisecond,
		Trace:    &domain.FailureTrace{Message: "runtime error: invalid memory address", Trace: "goroutine 7 [running]:"},
	})
	end(ignored, domain.CaseReport{Outcome: domain.OutcomeIgnored})
	session.Finish(startedAt.Add(2*time.Second), true)
	return session
}
