package report

import (
	"bytes"
	"scenario-lab/domain"
	"scenario-lab/errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_JUnit_Round_Trip(t *testing.T) {
	req := require.New(t)
	session := sampleSession()

	// Given a session exported as JUnit
	var buf bytes.Buffer
	req.NoError(WriteJUnit(&buf, session))
	document := buf.String()
	req.True(strings.HasPrefix(document, "<?xml"))
	req.Contains(document, `<testsuites name="sample"`)
	req.Contains(document, `<testcase name="this_test_will_fail" classname="tests1" time="1.500" outcome="EQUALITY_FAILURE">`)
	req.Contains(document, `type="EQUALITY_FAILURE"`)
	req.Contains(document, `incomplete="true"`)
	req.Contains(document, `<testcase name="it_works" classname="tests1" time="0.250" outcome="PASS">`)

	// When importing it back
	imported, err := ReadJUnit(&buf)
	req.NoError(err)

	// Then the tree, the counters and the traces are restored
	req.Equal("sample", imported.Name)
	req.Equal(domain.ProgressStopped, imported.Progress())
	req.Equal(startedAt, imported.StartedAt())
	req.Equal(2*time.Second, imported.Duration())
	counts := imported.Counts()
	req.Equal(5, counts.Total)
	req.Equal(1, counts.Failures)
	req.Equal(1, counts.Errors)
	req.Equal(1, counts.Ignored)

	suites := imported.Suites()
	req.Len(suites, 2)
	req.Equal("tests1", suites[0].Name)
	req.Len(suites[1].Cases, 3)

	failed := suites[0].Cases[1]
	req.Equal(domain.OutcomeEqualityFailure, failed.Outcome)
	req.Equal(1500*time.Millisecond, failed.Duration)
	req.Equal("I got the value 4\n", failed.Output)
	req.NotNil(failed.Trace)
	req.Equal("assertion `left == right` failed", failed.Trace.Message)
	req.Equal("10", failed.Trace.Expected)
	req.Equal("11", failed.Trace.Actual)
	req.True(failed.Trace.IsComparison())

	crashed := suites[1].Cases[0]
	req.Equal(domain.OutcomePanic, crashed.Outcome)
	req.Equal(domain.StatusError, crashed.Status)
	req.Equal("goroutine 7 [running]:", crashed.Trace.Trace)

	req.True(suites[1].Cases[1].Ignored)
	req.Equal(domain.StatusNotRun, suites[1].Cases[2].Status)
}

func Test_JUnit_Round_Trip_Keeps_Passing_Outcomes(t *testing.T) {
	req := require.New(t)

	// Given a completed run whose cases passed in every possible way
	session := domain.NewRunSession("passing")
	outcomes := []domain.Outcome{
		domain.OutcomePass,
		domain.OutcomeExpectedPanic,
		domain.OutcomeResultPass,
		domain.OutcomeIgnored,
	}
	ids := make([]string, len(outcomes))
	for i, outcome := range outcomes {
		ids[i] = session.AddCase("tests1", strings.ToLower(string(outcome)))
	}
	session.Start(startedAt)
	for i, outcome := range outcomes {
		session.CaseStarted(ids[i], startedAt)
		session.CaseEnded(ids[i], domain.CaseReport{Outcome: outcome})
	}
	session.Finish(startedAt.Add(time.Second), false)

	// When exporting and importing it back
	var buf bytes.Buffer
	req.NoError(WriteJUnit(&buf, session))
	req.Contains(buf.String(), `outcome="EXPECTED_PANIC"`)
	req.Contains(buf.String(), `outcome="RESULT_PASS"`)
	imported, err := ReadJUnit(&buf)
	req.NoError(err)

	// Then every outcome is the one that was exported
	cases := imported.Cases()
	req.Len(cases, len(outcomes))
	for i, c := range cases {
		req.Equal(outcomes[i], c.Outcome, c.Name)
	}
	req.True(imported.Passed())
}

func Test_JUnit_Ignores_Failed_Outcome_Without_Problem_Node(t *testing.T) {
	req := require.New(t)
	document := `<testsuites name="x"><testsuite name="s">
  <testcase name="a" classname="s" time="0.100" outcome="EXPECTED_PANIC"/>
  <testcase name="b" classname="s" time="0.100" outcome="EQUALITY_FAILURE"/>
  <testcase name="c" classname="s" time="0.100" outcome="NOT_A_THING"/>
</testsuite></testsuites>`

	session, err := ReadJUnit(strings.NewReader(document))

	req.NoError(err)
	cases := session.Cases()
	req.Equal(domain.OutcomeExpectedPanic, cases[0].Outcome)
	req.Equal(domain.OutcomePass, cases[1].Outcome)
	req.Equal(domain.OutcomePass, cases[2].Outcome)
}

func Test_JUnit_Reads_Foreign_Report(t *testing.T) {
	req := require.New(t)
	document := `<?xml version="1.0" encoding="UTF-8"?>
<testsuite name="legacy" tests="2" time="0.750">
  <properties><property name="os" value="linux"/></properties>
  <testcase name="a" classname="legacy" time="0.500">
    <failure message="boom" type="java.lang.AssertionError">at Legacy.a(Legacy.java:12)</failure>
    <system-err>oops</system-err>
  </testcase>
  <testcase name="b" classname="legacy" time="0.250">
    <error type="java.lang.NullPointerException">at Legacy.b(Legacy.java:20)</error>
  </testcase>
</testsuite>`

	session, err := ReadJUnit(strings.NewReader(document))

	req.NoError(err)
	req.Equal("legacy", session.Name)
	req.Equal(domain.ProgressCompleted, session.Progress())
	req.Equal(750*time.Millisecond, session.Duration())
	cases := session.Cases()
	req.Len(cases, 2)
	req.Equal(domain.OutcomeExplicitFailure, cases[0].Outcome)
	req.Equal("boom", cases[0].Trace.Message)
	req.Equal("oops", cases[0].Output)
	req.Equal(domain.OutcomePanic, cases[1].Outcome)
	req.Equal("at Legacy.b(Legacy.java:20)", cases[1].Trace.Message)
	req.Equal(domain.ResultError, session.Result())
}

func Test_JUnit_Rejects_Unknown_Node(t *testing.T) {
	req := require.New(t)

	_, err := ReadJUnit(strings.NewReader(`<testsuites><testsuite name="x"><benchmark/></testsuite></testsuites>`))

	req.ErrorIs(err, errors.ErrUnknownNode)
	req.Contains(err.Error(), "benchmark")
}

func Test_JUnit_Rejects_Empty_Document(t *testing.T) {
	req := require.New(t)

	_, err := ReadJUnit(strings.NewReader(`<?xml version="1.0"?>`))

	req.ErrorIs(err, errors.ErrInvalidPayload)
}
