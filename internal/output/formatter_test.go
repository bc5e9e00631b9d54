package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormatter_Case(t *testing.T) {
	s := sampleSuite()
	f := NewFormatter(false, true)

	var buf bytes.Buffer
	f.Case(&buf, s.Cases[0])
	f.Case(&buf, s.Cases[1])
	out := buf.String()

	for _, want := range []string{
		"JOURNEY 1: validUser",
		"JOURNEY 2: duplicateEmailUser",
		"✓ open home",
		"120ms",
		"✗ verify registration rejected",
		"unexpected outcome",
		"Outcome: success",
		"⚠ Warning: E-Mail Address is already registered!",
		"FAILED: register: verify registration rejected",
		"Screenshot: /tmp/register-failure.png",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Details of passing steps only show when verbose.
	if strings.Contains(out, "Your Account Has Been Created!") {
		t.Error("non-verbose output should hide passing step details")
	}
	if strings.Contains(out, "Final URL") {
		t.Error("non-verbose output should hide the final URL")
	}
}

func TestFormatter_Verbose(t *testing.T) {
	s := sampleSuite()
	f := NewFormatter(true, true)

	var buf bytes.Buffer
	f.Case(&buf, s.Cases[0])
	out := buf.String()
	if !strings.Contains(out, "Your Account Has Been Created!") {
		t.Errorf("verbose output should show step details:\n%s", out)
	}
	if !strings.Contains(out, "Final URL: https://opencart.test/index.php?route=account/success") {
		t.Errorf("verbose output should show the final URL:\n%s", out)
	}
}

func TestFormatter_Summary(t *testing.T) {
	f := NewFormatter(false, true)

	var buf bytes.Buffer
	f.Summary(&buf, sampleSuite())
	out := buf.String()
	if !strings.Contains(out, "✗ Journeys: 1 passed, 1 failed") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "Total time: 300ms") {
		t.Errorf("summary missing total time:\n%s", out)
	}

	ok := NewSuite("login", "https://opencart.test")
	buf.Reset()
	f.Summary(&buf, ok)
	if !strings.Contains(buf.String(), "✓ Journeys: 0 passed, 0 failed") {
		t.Errorf("unexpected empty summary:\n%s", buf.String())
	}
}
