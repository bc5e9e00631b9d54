package cli

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/browser"
	"github.com/wesleyorama2/shopcheck/internal/fixtures"
	"github.com/wesleyorama2/shopcheck/internal/output"
	"github.com/wesleyorama2/shopcheck/internal/pages/pagestest"
)

const storeURL = "https://opencart.test"

// fakeStores makes launchBrowser hand out fresh fake stores for the test,
// each with the given accounts already registered.
func fakeStores(t *testing.T, accounts map[string]string) *int {
	t.Helper()
	launched := 0
	orig := launchBrowser
	launchBrowser = func(ctx context.Context, cfg browser.Config, logger *zap.Logger) (browser.Driver, error) {
		launched++
		store := pagestest.NewOpenCart(storeURL)
		for email, password := range accounts {
			store.AddAccount(email, password)
		}
		return store, nil
	}
	t.Cleanup(func() { launchBrowser = orig })
	t.Setenv("SCREENSHOT_DIR", t.TempDir())
	t.Setenv("BASE_URL", "")
	return &launched
}

func TestJourneyRegister_AllScenarios(t *testing.T) {
	launched := fakeStores(t, nil)
	d, err := fixtures.OpenCart()
	require.NoError(t, err)

	stdout, _, err := execute(t, "journey", "register", "--base-url", storeURL, "--no-color")
	require.NoError(t, err, stdout)

	assert.Equal(t, len(d.RegistrationScenarios), *launched)
	for i, sc := range d.RegistrationScenarios {
		assert.Contains(t, stdout, "JOURNEY "+strconv.Itoa(i+1)+": "+sc.Name)
	}
	assert.Contains(t, stdout, "✓ Journeys: "+strconv.Itoa(len(d.RegistrationScenarios))+" passed, 0 failed")
}

func TestJourneyRegister_DuplicateAccountFails(t *testing.T) {
	d, err := fixtures.OpenCart()
	require.NoError(t, err)
	valid, err := d.User("validUser")
	require.NoError(t, err)
	fakeStores(t, map[string]string{valid.Email: "taken"})

	stdout, _, err := execute(t, "journey", "register", "validUser", "passwordMismatchUser",
		"--unique-emails=false", "--base-url", storeURL, "--no-color")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFailed))
	assert.Contains(t, err.Error(), "1 of 2 journeys failed")

	assert.Contains(t, stdout, "JOURNEY 1: validUser")
	assert.Contains(t, stdout, "FAILED:")
	assert.Contains(t, stdout, pagestest.MsgEmailRegistered)
	assert.Contains(t, stdout, "Screenshot:")
	assert.Contains(t, stdout, "✗ Journeys: 1 passed, 1 failed")
}

func TestJourneyRegister_UnknownUser(t *testing.T) {
	fakeStores(t, nil)
	_, _, err := execute(t, "journey", "register", "nobody")
	assert.Error(t, err)
}

func TestJourneyLogin_JSONReport(t *testing.T) {
	d, err := fixtures.OpenCart()
	require.NoError(t, err)
	valid, err := d.Credentials("valid")
	require.NoError(t, err)
	fakeStores(t, map[string]string{valid.Email: valid.Password})

	stdout, _, err := execute(t, "journey", "login", "valid", "invalid", "--base-url", storeURL, "--format", "json")
	require.NoError(t, err)

	var suite output.Suite
	require.NoError(t, json.Unmarshal([]byte(stdout), &suite), stdout)
	assert.Equal(t, "login", suite.Name)
	assert.Equal(t, storeURL, suite.BaseURL)
	require.Len(t, suite.Cases, 2)
	assert.Equal(t, "success", suite.Cases[0].Outcome)
	assert.Equal(t, "error", suite.Cases[1].Outcome)
	assert.Equal(t, []string{d.Message("loginError")}, suite.Cases[1].Errors)
	assert.Equal(t, 2, suite.PassedCases)
}

func TestJourneyReset_JUnitFile(t *testing.T) {
	fakeStores(t, map[string]string{"juan.perez.test@example.com": "TestPassword123!"})
	report := filepath.Join(t.TempDir(), "reports", "reset.xml")

	stdout, _, err := execute(t, "journey", "reset", "juan.perez.test@example.com", "nobody@example.com",
		"--base-url", storeURL, "--format", "junit", "--output", report, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, stdout, "JOURNEY 2: nobody@example.com")
	assert.Contains(t, stdout, "Report written to: "+report)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var suites output.JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &suites))
	require.Len(t, suites.TestSuites, 1)
	assert.Equal(t, 2, suites.TestSuites[0].Tests)
	assert.Equal(t, 0, suites.TestSuites[0].Failures)
}

func TestJourney_OutputNeedsStructuredFormat(t *testing.T) {
	fakeStores(t, nil)
	_, _, err := execute(t, "journey", "reset", "--output", filepath.Join(t.TempDir(), "r.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output needs --format")
}

func TestJourney_LaunchFailure(t *testing.T) {
	fakeStores(t, nil)
	launchBrowser = func(ctx context.Context, cfg browser.Config, logger *zap.Logger) (browser.Driver, error) {
		return nil, errors.New("no chromium")
	}

	stdout, _, err := execute(t, "journey", "reset", "a@example.com", "--base-url", storeURL, "--no-color")
	assert.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, stdout, "launch browser: no chromium")
}

func TestJourneyBaseURL(t *testing.T) {
	d, err := fixtures.OpenCart()
	require.NoError(t, err)

	t.Setenv("BASE_URL", "")
	assert.Equal(t, d.App.BaseURL, journeyBaseURL("", d))

	t.Setenv("BASE_URL", "https://env.test/")
	assert.Equal(t, "https://env.test", journeyBaseURL("", d))
	assert.Equal(t, "https://flag.test", journeyBaseURL("https://flag.test/", d))
}
