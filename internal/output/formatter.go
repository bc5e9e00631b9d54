package output

import (
	"fmt"
	"io"
	"strings"
)

// Formatter prints journey cases as they complete
type Formatter struct {
	Verbose bool
	scheme  *ColorScheme
	count   int
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(verbose, noColor bool) *Formatter {
	return &Formatter{
		Verbose: verbose,
		scheme:  Scheme(noColor),
	}
}

// Case writes one journey: a header line, its steps, and any messages the
// store displayed.
func (f *Formatter) Case(w io.Writer, c Case) {
	f.count++
	s := f.scheme

	fmt.Fprintf(w, "%s %s\n", s.Title.Sprintf("JOURNEY %d:", f.count), s.Name.Sprint(c.Label))
	for _, st := range c.Steps {
		fmt.Fprintf(w, "  %s %-30s %s", s.Status(st.Passed), st.Name, s.Detail.Sprintf("%dms", st.DurationMs))
		if st.Detail != "" && (f.Verbose || !st.Passed) {
			fmt.Fprintf(w, "  %s", st.Detail)
		}
		fmt.Fprintln(w)
	}
	if c.Outcome != "" {
		fmt.Fprintf(w, "  Outcome: %s\n", s.Highlight.Sprint(c.Outcome))
	}
	for _, msg := range c.Errors {
		fmt.Fprintf(w, "  %s %s\n", s.Warning(), msg)
	}
	if c.Failure != "" {
		fmt.Fprintf(w, "  %s %s\n", s.Fail.Sprint("FAILED:"), c.Failure)
	}
	if c.Screenshot != "" {
		fmt.Fprintf(w, "  Screenshot: %s\n", c.Screenshot)
	}
	if f.Verbose && c.FinalURL != "" {
		fmt.Fprintf(w, "  Final URL: %s\n", c.FinalURL)
	}
	fmt.Fprintln(w)
}

// Summary writes the pass/fail totals for the suite.
func (f *Formatter) Summary(w io.Writer, suite *Suite) {
	s := f.scheme
	fmt.Fprintln(w, strings.Repeat("─", 50))

	passed := fmt.Sprintf("%d passed", suite.PassedCases)
	failed := fmt.Sprintf("%d failed", suite.FailedCases)
	icon := s.Status(suite.FailedCases == 0)
	if suite.FailedCases > 0 {
		failed = s.Fail.Sprint(failed)
	} else {
		passed = s.Pass.Sprint(passed)
	}
	fmt.Fprintf(w, "%s Journeys: %s, %s\n", icon, passed, failed)
	fmt.Fprintf(w, "Total time: %dms\n", suite.DurationMs)
}
