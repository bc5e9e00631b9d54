package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/browser"
	"github.com/wesleyorama2/shopcheck/internal/fixtures"
	"github.com/wesleyorama2/shopcheck/internal/journey"
	"github.com/wesleyorama2/shopcheck/internal/output"
	"github.com/wesleyorama2/shopcheck/internal/pages"
)

// launchBrowser starts one browser per journey. Tests replace it.
var launchBrowser = browser.Launch

var journeyCmd = &cobra.Command{
	Use:   "journey",
	Short: "Run browser journeys against an OpenCart store",
	Long: `Run account journeys through the page objects in a real browser.

The store comes from --base-url, then BASE_URL, then the fixture default.
HEADLESS=false shows the browser and SLOW_MO=<ms> slows every action.
BROWSER_ENGINE selects rod (default) or playwright.

  shopcheck journey register                 # every registration scenario
  shopcheck journey register validUser       # selected fixture users
  shopcheck journey login valid invalid
  shopcheck journey reset juan.perez.test@example.com`,
}

var registerJourneyCmd = &cobra.Command{
	Use:   "register [user...]",
	Short: "Register fixture users and verify the outcome each one expects",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := fixtures.OpenCart()
		if err != nil {
			return err
		}
		unique, _ := cmd.Flags().GetBool("unique-emails")

		type registration struct {
			label string
			user  fixtures.User
		}
		var runs []registration
		if len(args) == 0 {
			for _, sc := range d.RegistrationScenarios {
				runs = append(runs, registration{label: sc.Name, user: sc.User})
			}
		}
		for _, name := range args {
			u, err := d.User(name)
			if err != nil {
				return err
			}
			runs = append(runs, registration{label: name, user: u})
		}

		var cases []journeyCase
		for _, r := range runs {
			u := r.user
			// Only users expected to succeed get a fresh address; the
			// others are rejected for their address or other fields.
			if unique && u.ExpectsSuccess() {
				u = fixtures.UniqueUser(u)
			}
			cases = append(cases, journeyCase{
				label: r.label,
				run: func(ctx context.Context, jr *journey.Runner) (journey.Result, error) {
					return jr.Register(ctx, u)
				},
			})
		}
		return runJourneys(cmd, "register", d, cases)
	},
}

var loginJourneyCmd = &cobra.Command{
	Use:   "login [credentials...]",
	Short: "Log in with fixture credentials and report the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := fixtures.OpenCart()
		if err != nil {
			return err
		}
		names := args
		if len(names) == 0 {
			for name := range d.Login {
				names = append(names, name)
			}
			sort.Strings(names)
		}

		var cases []journeyCase
		for _, name := range names {
			c, err := d.Credentials(name)
			if err != nil {
				return err
			}
			cases = append(cases, journeyCase{
				label: name,
				run: func(ctx context.Context, jr *journey.Runner) (journey.Result, error) {
					return jr.Login(ctx, c)
				},
			})
		}
		return runJourneys(cmd, "login", d, cases)
	},
}

var resetJourneyCmd = &cobra.Command{
	Use:   "reset [email...]",
	Short: "Request password resets and report the store's answer",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := fixtures.OpenCart()
		if err != nil {
			return err
		}
		emails := args
		if len(emails) == 0 {
			valid, err := d.Credentials("valid")
			if err != nil {
				return err
			}
			emails = []string{valid.Email}
		}

		var cases []journeyCase
		for _, email := range emails {
			cases = append(cases, journeyCase{
				label: email,
				run: func(ctx context.Context, jr *journey.Runner) (journey.Result, error) {
					return jr.ResetPassword(ctx, email)
				},
			})
		}
		return runJourneys(cmd, "reset", d, cases)
	},
}

type journeyCase struct {
	label string
	run   func(context.Context, *journey.Runner) (journey.Result, error)
}

// journeyBaseURL picks the store: flag, then BASE_URL, then the fixtures.
func journeyBaseURL(flag string, d *fixtures.Data) string {
	if flag != "" {
		return strings.TrimRight(flag, "/")
	}
	if v := strings.TrimSpace(os.Getenv("BASE_URL")); v != "" {
		return strings.TrimRight(v, "/")
	}
	return d.App.BaseURL
}

func runJourneys(cmd *cobra.Command, name string, d *fixtures.Data, cases []journeyCase) error {
	baseFlag, _ := cmd.Flags().GetString("base-url")
	formatFlag, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	verbose, _ := cmd.Flags().GetBool("verbose")
	noColor, _ := cmd.Flags().GetBool("no-color")

	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	if format == output.FormatText && outputPath != "" {
		return fmt.Errorf("--output needs --format json, yaml or junit")
	}

	cfg, err := browser.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	baseURL := journeyBaseURL(baseFlag, d)
	logger.Info("running journeys",
		zap.String("journey", name),
		zap.String("baseURL", baseURL),
		zap.String("engine", cfg.Engine),
		zap.Bool("headless", cfg.Headless),
		zap.Duration("slowMo", cfg.SlowMo))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Text goes to stdout unless a structured report takes its place there.
	var text io.Writer
	if format == output.FormatText || outputPath != "" {
		text = cmd.OutOrStdout()
	}
	formatter := output.NewFormatter(verbose, noColor)
	suite := output.NewSuite(name, baseURL)

	timeouts := pages.Timeouts{
		Wait:  d.App.Timeouts.MediumDuration(),
		Probe: d.App.Timeouts.ShortDuration(),
	}
	for _, jc := range cases {
		if ctx.Err() != nil {
			break
		}
		res, err := runJourney(ctx, name, cfg, logger, jc, journey.Runner{
			BaseURL:       baseURL,
			Logger:        logger,
			Timeouts:      timeouts,
			ScreenshotDir: cfg.ScreenshotDir,
		})
		c := suite.Add(jc.label, res, err)
		if text != nil {
			formatter.Case(text, c)
		}
	}
	if text != nil {
		formatter.Summary(text, suite)
	}

	if format != output.FormatText {
		if err := writeReport(cmd.OutOrStdout(), outputPath, format, suite); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return fmt.Errorf("journeys interrupted: %w", ctx.Err())
	}
	if suite.FailedCases > 0 {
		return fmt.Errorf("%w: %d of %d journeys failed", ErrFailed, suite.FailedCases, suite.TotalCases)
	}
	return nil
}

// runJourney gives one journey a fresh browser so no session leaks into
// the next.
func runJourney(ctx context.Context, name string, cfg browser.Config, logger *zap.Logger, jc journeyCase, runner journey.Runner) (journey.Result, error) {
	drv, err := launchBrowser(ctx, cfg, logger)
	if err != nil {
		return journey.Result{Journey: name}, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if err := drv.Close(); err != nil {
			logger.Warn("close browser", zap.Error(err))
		}
	}()
	runner.Driver = drv
	return jc.run(ctx, &runner)
}

func writeReport(stdout io.Writer, path string, format output.OutputFormat, suite *output.Suite) error {
	if path == "" {
		return output.Write(stdout, format, suite)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := output.Write(f, format, suite); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Report written to: %s\n", path)
	return nil
}

func init() {
	journeyCmd.PersistentFlags().String("base-url", "", "Store URL (takes precedence over BASE_URL)")
	journeyCmd.PersistentFlags().StringP("format", "f", "text", "Report format: text, json, yaml or junit")
	journeyCmd.PersistentFlags().StringP("output", "o", "", "Write the report to a file instead of stdout")

	registerJourneyCmd.Flags().Bool("unique-emails", true, "Give users expected to register a fresh e-mail address")

	journeyCmd.AddCommand(registerJourneyCmd)
	journeyCmd.AddCommand(loginJourneyCmd)
	journeyCmd.AddCommand(resetJourneyCmd)
}
