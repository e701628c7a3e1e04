package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"scenario-lab/domain"
	"scenario-lab/errors"
	"strconv"
	"time"

	"github.com/samber/lo"
)

const (
	nodeTestRun    = "testrun"
	nodeTestSuites = "testsuites"
	nodeTestSuite  = "testsuite"
	nodeProperties = "properties"
	nodeProperty   = "property"
	nodeTestCase   = "testcase"
	nodeFailure    = "failure"
	nodeError      = "error"
	nodeSkipped    = "skipped"
	nodeExpected   = "expected"
	nodeActual     = "actual"
	nodeSystemOut  = "system-out"
	nodeSystemErr  = "system-err"
)

type xmlTestSuites struct {
	XMLName   xml.Name       `xml:"testsuites"`
	Name      string         `xml:"name,attr"`
	ID        string         `xml:"id,attr"`
	Tests     int            `xml:"tests,attr"`
	Failures  int            `xml:"failures,attr"`
	Errors    int            `xml:"errors,attr"`
	Skipped   int            `xml:"skipped,attr"`
	Time      string         `xml:"time,attr"`
	Timestamp string         `xml:"timestamp,attr"`
	Progress  string         `xml:"progress,attr"`
	Suites    []xmlTestSuite `xml:"testsuite"`
}

type xmlTestSuite struct {
	Name     string        `xml:"name,attr"`
	Tests    int           `xml:"tests,attr"`
	Failures int           `xml:"failures,attr"`
	Errors   int           `xml:"errors,attr"`
	Skipped  int           `xml:"skipped,attr"`
	Time     string        `xml:"time,attr"`
	Cases    []xmlTestCase `xml:"testcase"`
}

type xmlTestCase struct {
	Name       string      `xml:"name,attr"`
	ClassName  string      `xml:"classname,attr"`
	Time       string      `xml:"time,attr"`
	Outcome    string      `xml:"outcome,attr,omitempty"`
	Incomplete bool        `xml:"incomplete,attr,omitempty"`
	Ignored    bool        `xml:"ignored,attr,omitempty"`
	Failure    *xmlProblem `xml:"failure,omitempty"`
	Error      *xmlProblem `xml:"error,omitempty"`
	Skipped    *struct{}   `xml:"skipped,omitempty"`
	Expected   string      `xml:"expected,omitempty"`
	Actual     string      `xml:"actual,omitempty"`
	SystemOut  string      `xml:"system-out,omitempty"`
}

type xmlProblem struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr"`
	Trace   string `xml:",chardata"`
}

// WriteJUnit exports a session as a JUnit XML document.
// Every case carries its outcome in an outcome attribute, a failed case also keeps it
// in the type attribute of its failure or error node.
func WriteJUnit(w io.Writer, session *domain.RunSession) error {
	counts := session.Counts()
	doc := xmlTestSuites{
		Name:      session.Name,
		ID:        session.ID.String(),
		Tests:     counts.Total,
		Failures:  counts.Failures,
		Errors:    counts.Errors,
		Skipped:   counts.Ignored,
		Time:      formatSeconds(session.Duration()),
		Timestamp: session.StartedAt().UTC().Format(time.RFC3339Nano),
		Progress:  string(session.Progress()),
	}
	for _, suite := range session.Suites() {
		t := tallySuite(suite)
		xs := xmlTestSuite{
			Name:     suite.Name,
			Tests:    t.tests,
			Failures: t.failures,
			Errors:   t.errors,
			Skipped:  t.ignored,
			Time:     formatSeconds(suite.Duration()),
		}
		for _, tc := range suite.Cases {
			xs.Cases = append(xs.Cases, toXMLCase(tc))
		}
		doc.Suites = append(doc.Suites, xs)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encoding junit report: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toXMLCase(tc domain.TestCase) xmlTestCase {
	xc := xmlTestCase{
		Name:       tc.Name,
		ClassName:  tc.Suite,
		Time:       formatSeconds(tc.Duration),
		Outcome:    string(lo.Ternary(tc.Outcome.Known(), tc.Outcome, "")),
		Incomplete: tc.Status.IsNotRun(),
		Ignored:    tc.Ignored,
		SystemOut:  tc.Output,
	}
	if tc.Ignored {
		xc.Skipped = &struct{}{}
	}
	if tc.Trace != nil && tc.Status.IsErrorOrFailure() {
		problem := &xmlProblem{Message: tc.Trace.Message, Type: string(tc.Outcome), Trace: tc.Trace.Trace}
		if problem.Trace == "" {
			problem.Trace = tc.Trace.Message
		}
		if tc.Status.IsError() {
			xc.Error = problem
		} else {
			xc.Failure = problem
		}
		xc.Expected = tc.Trace.Expected
		xc.Actual = tc.Trace.Actual
	}
	return xc
}

// junitCase accumulates the nodes of one testcase while it is being read.
type junitCase struct {
	id         string
	incomplete bool
	ignored    bool
	duration   time.Duration
	outcome    domain.Outcome
	trace      *domain.FailureTrace
	output     string
}

// ReadJUnit imports a JUnit XML document into a finished session.
// Any element outside of the JUnit vocabulary is rejected with ErrUnknownNode.
func ReadJUnit(r io.Reader) (*domain.RunSession, error) {
	decoder := xml.NewDecoder(r)
	var (
		session   *domain.RunSession
		suites    []string
		current   *junitCase
		text      []byte
		startedAt time.Time
		total     time.Duration
		stopped   bool
		cases     []*junitCase
	)
	ensureSession := func(name string) {
		if session == nil {
			session = domain.NewRunSession(name)
		}
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading junit report: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			text = text[:0]
			switch t.Name.Local {
			case nodeTestRun, nodeTestSuites:
				ensureSession(attr(t, "name"))
				startedAt = parseTimestamp(attr(t, "timestamp"))
				total = parseSeconds(attr(t, "time"))
				stopped = stopped || attr(t, "progress") == string(domain.ProgressStopped)
			case nodeTestSuite:
				ensureSession(attr(t, "name"))
				suites = append(suites, attr(t, "name"))
				if startedAt.IsZero() {
					startedAt = parseTimestamp(attr(t, "timestamp"))
				}
			case nodeProperties, nodeProperty:
			case nodeTestCase:
				ensureSession(attr(t, "classname"))
				suite := attr(t, "classname")
				if len(suites) > 0 {
					suite = suites[len(suites)-1]
				}
				current = &junitCase{
					id:         session.AddCase(suite, attr(t, "name")),
					incomplete: attr(t, "incomplete") == "true",
					ignored:    attr(t, "ignored") == "true",
					duration:   parseSeconds(attr(t, "time")),
					outcome:    passingOutcome(attr(t, "outcome")),
				}
				cases = append(cases, current)
			case nodeFailure, nodeError:
				if current == nil {
					return nil, fmt.Errorf("%w: %s outside of a testcase", errors.ErrUnknownNode, t.Name.Local)
				}
				current.outcome = problemOutcome(t.Name.Local, attr(t, "type"))
				current.trace = &domain.FailureTrace{Message: attr(t, "message")}
			case nodeSkipped:
				if current != nil {
					current.ignored = true
				}
			case nodeExpected, nodeActual, nodeSystemOut, nodeSystemErr:
			default:
				return nil, fmt.Errorf("%w: '%s'", errors.ErrUnknownNode, t.Name.Local)
			}
		case xml.CharData:
			text = append(text, t...)
		case xml.EndElement:
			switch t.Name.Local {
			case nodeTestSuite:
				if len(suites) > 0 {
					suites = suites[:len(suites)-1]
				}
			case nodeTestCase:
				current = nil
			case nodeFailure, nodeError:
				if current != nil && current.trace != nil {
					current.trace.Trace = string(text)
					if current.trace.Message == "" {
						current.trace.Message = string(text)
					}
				}
			case nodeExpected, nodeActual:
				if current != nil {
					if current.trace == nil {
						current.trace = &domain.FailureTrace{}
					}
					if t.Name.Local == nodeExpected {
						current.trace.Expected = string(text)
					} else {
						current.trace.Actual = string(text)
					}
				}
			case nodeSystemOut, nodeSystemErr:
				if current != nil {
					current.output += string(text)
				}
			}
		}
	}

	if session == nil {
		return nil, fmt.Errorf("%w: empty junit report", errors.ErrInvalidPayload)
	}

	session.Start(startedAt)
	var sum time.Duration
	for _, jc := range cases {
		sum += jc.duration
		if jc.incomplete {
			stopped = true
			continue
		}
		if jc.ignored {
			jc.outcome = domain.OutcomeIgnored
		}
		session.CaseStarted(jc.id, startedAt)
		session.CaseEnded(jc.id, domain.CaseReport{
			Outcome:  jc.outcome,
			Trace:    jc.trace,
			Output:   jc.output,
			Duration: jc.duration,
		})
	}
	if total == 0 {
		total = sum
	}
	session.Finish(startedAt.Add(total), stopped)
	return session, nil
}

// passingOutcome restores the outcome of a case without failure or error node.
// Failed outcomes only come from the problem node.
func passingOutcome(value string) domain.Outcome {
	outcome := domain.Outcome(value)
	if outcome.Known() && outcome.Passed() {
		return outcome
	}
	return domain.OutcomePass
}

// problemOutcome restores the outcome written by WriteJUnit, foreign reports fall back to
// an explicit failure or a panic depending on the node.
func problemOutcome(node, kind string) domain.Outcome {
	outcome := domain.Outcome(kind)
	if !outcome.Known() {
		outcome = ""
	}
	if node == nodeError {
		if outcome.Status().IsError() {
			return outcome
		}
		return domain.OutcomePanic
	}
	if outcome.Status().IsFailure() {
		return outcome
	}
	return domain.OutcomeExplicitFailure
}

func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func parseSeconds(s string) time.Duration {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
