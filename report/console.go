// Package report renders a run session for humans (console) and for tools (JUnit XML).
package report

import (
	"fmt"
	"io"
	"scenario-lab/domain"
	"scenario-lab/domain/event"
	"scenario-lab/observability"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

const indent = "    "

var (
	passStyle    = color.New(color.FgGreen, color.OpBold)
	failStyle    = color.New(color.FgRed, color.OpBold)
	errorStyle   = color.New(color.BgRed, color.FgWhite, color.OpBold)
	ignoredStyle = color.New(color.FgYellow)
	notRunStyle  = color.New(color.FgGray)
	headerStyle  = color.New(color.BgBlack, color.FgGreen)
)

// Filter selects the cases printed live, the summary always counts every case.
type Filter int

const (
	ShowAll Filter = iota
	ShowFailuresOnly
	ShowIgnoredOnly
)

// NewFilter picks the filter matching the console options, failures win over ignored.
func NewFilter(failuresOnly, ignoredOnly bool) Filter {
	switch {
	case failuresOnly:
		return ShowFailuresOnly
	case ignoredOnly:
		return ShowIgnoredOnly
	default:
		return ShowAll
	}
}

func (f Filter) Shows(tc domain.TestCase) bool {
	switch f {
	case ShowFailuresOnly:
		return tc.Status.IsErrorOrFailure()
	case ShowIgnoredOnly:
		return tc.Ignored
	default:
		return true
	}
}

// Console prints a live line per finished case and a summary table once the run ends.
type Console struct {
	mu         sync.Mutex
	out        io.Writer
	colours    bool
	showOutput bool
	filter     Filter
	monitor    *observability.Monitor
}

func NewConsole(out io.Writer, colours bool) *Console {
	return &Console{out: out, colours: colours, showOutput: true}
}

// WithMonitor adds the resource usage of the harness to the summary.
func (c *Console) WithMonitor(monitor *observability.Monitor) *Console {
	c.monitor = monitor
	return c
}

// WithOutput toggles the captured output of failed cases.
func (c *Console) WithOutput(show bool) *Console {
	c.showOutput = show
	return c
}

// WithFilter restricts the live lines to the cases the filter shows.
func (c *Console) WithFilter(filter Filter) *Console {
	c.filter = filter
	return c
}

func (c *Console) Handle(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch evt := e.Payload.(type) {
	case event.RunStarted:
		c.printf("%s\n", c.render(headerStyle, fmt.Sprintf("  ====== %s: running %d scenarios ======", evt.Name, evt.Count)))
	case event.TestEnded:
		if c.filter.Shows(evt.Case) {
			c.printCase(evt.Case)
		}
	case event.RunEnded:
		if evt.Session != nil {
			c.summary(evt.Session)
		}
	}
}

// Summary prints the per suite table and the totals of a finished session.
func (c *Console) Summary(session *domain.RunSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary(session)
}

func (c *Console) printCase(tc domain.TestCase) {
	c.printf("%s %s (%s)\n", c.tag(tc), tc.QualifiedName(), seconds(tc.Duration))
	if tc.Trace != nil && tc.Status.IsErrorOrFailure() {
		c.printf("%s\n", indentLines(tc.Trace.Message))
		if tc.Trace.IsComparison() {
			c.printf("%s\n", indentLines("expected: "+tc.Trace.Expected))
			c.printf("%s\n", indentLines("  actual: "+tc.Trace.Actual))
		}
	}
	if c.showOutput && tc.Output != "" && tc.Status.IsErrorOrFailure() {
		c.printf("%s---- %s stdout ----\n%s\n", indent, tc.Name, indentLines(strings.TrimRight(tc.Output, "\n")))
	}
}

func (c *Console) summary(session *domain.RunSession) {
	c.printf("\n")
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Suite", "Status", "Tests", "Passed", "Failures", "Errors", "Ignored", "Not run", "Time"})
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	total := tally{}
	for _, suite := range session.Suites() {
		t := tallySuite(suite)
		total = total.add(t)
		table.Append([]string{
			suite.Name,
			string(suite.Status()),
			fmt.Sprint(t.tests),
			fmt.Sprint(t.passed),
			fmt.Sprint(t.failures),
			fmt.Sprint(t.errors),
			fmt.Sprint(t.ignored),
			fmt.Sprint(t.notRun),
			seconds(suite.Duration()),
		})
	}
	table.SetFooter([]string{
		"Total",
		string(session.Result()),
		fmt.Sprint(total.tests),
		fmt.Sprint(total.passed),
		fmt.Sprint(total.failures),
		fmt.Sprint(total.errors),
		fmt.Sprint(total.ignored),
		fmt.Sprint(total.notRun),
		seconds(session.Duration()),
	})
	table.Render()

	style := passStyle
	if !session.Passed() {
		style = failStyle
	}
	c.printf("\n%s: %d passed; %d failed; %d errors; %d ignored; %d not run; %s, finished in %s\n",
		c.render(style, "result "+string(session.Result())),
		total.passed, total.failures, total.errors, total.ignored, total.notRun,
		strings.ToLower(string(session.Progress())), seconds(session.Duration()))

	if c.monitor != nil {
		latest := c.monitor.Latest()
		c.printf("resources: peak rss %.1f MiB; cpu %.1f%%; goroutines %d\n",
			float64(c.monitor.PeakRSS())/(1<<20), latest.CPUPercent, latest.Goroutines)
	}
}

func (c *Console) tag(tc domain.TestCase) string {
	switch {
	case tc.Ignored:
		return c.render(ignoredStyle, "[IGNORED]")
	case tc.Status.IsError():
		return c.render(errorStyle, "[ERROR]  ")
	case tc.Status.IsFailure():
		return c.render(failStyle, "[FAIL]   ")
	case tc.Status.IsNotRun():
		return c.render(notRunStyle, "[NOT RUN]")
	default:
		return c.render(passStyle, "[PASS]   ")
	}
}

func (c *Console) render(style color.Style, s string) string {
	if !c.colours {
		return s
	}
	return style.Render(s)
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

type tally struct {
	tests, passed, failures, errors, ignored, notRun int
}

func tallySuite(suite domain.TestSuite) tally {
	t := tally{tests: len(suite.Cases)}
	for _, tc := range suite.Cases {
		switch {
		case tc.Ignored:
			t.ignored++
		case tc.Status.IsError():
			t.errors++
		case tc.Status.IsFailure():
			t.failures++
		case tc.Status.IsNotRun():
			t.notRun++
		default:
			t.passed++
		}
	}
	return t
}

func (t tally) add(other tally) tally {
	return tally{
		tests:    t.tests + other.tests,
		passed:   t.passed + other.passed,
		failures: t.failures + other.failures,
		errors:   t.errors + other.errors,
		ignored:  t.ignored + other.ignored,
		notRun:   t.notRun + other.notRun,
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func indentLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
