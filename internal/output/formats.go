package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/shopcheck/internal/journey"
)

// OutputFormat represents the journey report format
type OutputFormat string

const (
	// FormatText is the human readable step list
	FormatText OutputFormat = "text"
	// FormatJSON is the machine readable suite
	FormatJSON OutputFormat = "json"
	// FormatYAML is the suite as YAML
	FormatYAML OutputFormat = "yaml"
	// FormatJUnit is JUnit XML for CI systems
	FormatJUnit OutputFormat = "junit"
)

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatJUnit:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json, yaml or junit)", s)
}

// StepRecord is one journey step in a report
type StepRecord struct {
	Name       string `json:"name" yaml:"name"`
	Passed     bool   `json:"passed" yaml:"passed"`
	DurationMs int64  `json:"durationMs" yaml:"durationMs"`
	Detail     string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Case is the report of one journey run
type Case struct {
	Label      string       `json:"label" yaml:"label"`
	Journey    string       `json:"journey" yaml:"journey"`
	Passed     bool         `json:"passed" yaml:"passed"`
	Outcome    string       `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	DurationMs int64        `json:"durationMs" yaml:"durationMs"`
	Steps      []StepRecord `json:"steps" yaml:"steps"`
	Errors     []string     `json:"errors,omitempty" yaml:"errors,omitempty"`
	FinalURL   string       `json:"finalUrl,omitempty" yaml:"finalUrl,omitempty"`
	Screenshot string       `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
	Failure    string       `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Suite represents the result of a journey run
type Suite struct {
	Name        string `json:"suite" yaml:"suite"`
	BaseURL     string `json:"baseUrl" yaml:"baseUrl"`
	TotalCases  int    `json:"totalJourneys" yaml:"totalJourneys"`
	PassedCases int    `json:"passedJourneys" yaml:"passedJourneys"`
	FailedCases int    `json:"failedJourneys" yaml:"failedJourneys"`
	DurationMs  int64  `json:"durationMs" yaml:"durationMs"`
	Cases       []Case `json:"journeys" yaml:"journeys"`
	Timestamp   string `json:"timestamp" yaml:"timestamp"`
}

// NewSuite starts an empty suite
func NewSuite(name, baseURL string) *Suite {
	return &Suite{
		Name:      name,
		BaseURL:   baseURL,
		Cases:     []Case{},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// Add records a journey result. A case passes when err is nil.
func (s *Suite) Add(label string, res journey.Result, err error) Case {
	c := Case{
		Label:      label,
		Journey:    res.Journey,
		Passed:     err == nil,
		Outcome:    string(res.Outcome),
		DurationMs: res.Duration().Milliseconds(),
		Steps:      make([]StepRecord, 0, len(res.Steps)),
		Errors:     res.Errors,
		FinalURL:   res.FinalURL,
		Screenshot: res.Screenshot,
	}
	for _, st := range res.Steps {
		c.Steps = append(c.Steps, StepRecord{
			Name:       st.Name,
			Passed:     st.OK,
			DurationMs: st.Duration.Milliseconds(),
			Detail:     st.Detail,
		})
	}
	if err != nil {
		c.Failure = err.Error()
	}

	s.Cases = append(s.Cases, c)
	s.TotalCases++
	if c.Passed {
		s.PassedCases++
	} else {
		s.FailedCases++
	}
	s.DurationMs += c.DurationMs
	return c
}

// JUnitTestSuites represents the root element containing all test suites
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents a JUnit test suite
type JUnitTestSuite struct {
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a JUnit test case
type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure represents a JUnit test failure
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

func seconds(ms int64) float64 {
	return float64(ms) / 1000
}

// JUnit converts the suite to JUnit XML elements.
func (s *Suite) JUnit() JUnitTestSuites {
	ts := JUnitTestSuite{
		Name:      s.Name,
		Tests:     s.TotalCases,
		Failures:  s.FailedCases,
		Time:      seconds(s.DurationMs),
		Timestamp: s.Timestamp,
	}
	for _, c := range s.Cases {
		tc := JUnitTestCase{
			Name:      c.Label,
			Classname: "shopcheck." + c.Journey,
			Time:      seconds(c.DurationMs),
		}
		var out strings.Builder
		for _, st := range c.Steps {
			status := "ok"
			if !st.Passed {
				status = "FAILED"
			}
			fmt.Fprintf(&out, "%s: %s (%dms)", st.Name, status, st.DurationMs)
			if st.Detail != "" {
				fmt.Fprintf(&out, " %s", st.Detail)
			}
			out.WriteByte('\n')
		}
		tc.SystemOut = out.String()
		if !c.Passed {
			tc.Failure = &JUnitFailure{
				Message: c.Failure,
				Type:    "JourneyFailure",
				Content: strings.Join(c.Errors, "\n"),
			}
		}
		ts.TestCases = append(ts.TestCases, tc)
	}
	return JUnitTestSuites{TestSuites: []JUnitTestSuite{ts}}
}

// Write renders the suite in a structured format. FormatText is handled by
// Formatter as journeys complete.
func Write(w io.Writer, format OutputFormat, s *Suite) error {
	var data []byte
	var err error
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(s, "", "  ")
	case FormatYAML:
		data, err = yaml.Marshal(s)
	case FormatJUnit:
		data, err = xml.MarshalIndent(s.JUnit(), "", "  ")
		if err == nil {
			data = append([]byte(xml.Header), data...)
		}
	default:
		return fmt.Errorf("format %q is not a structured format", format)
	}
	if err != nil {
		return fmt.Errorf("marshal %s report: %w", format, err)
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	_, err = w.Write(data)
	return err
}
