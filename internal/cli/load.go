package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/load/config"
	"github.com/wesleyorama2/shopcheck/internal/load/engine"
	loadoutput "github.com/wesleyorama2/shopcheck/internal/load/output"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Run a load scenario",
	Long: `Run a load scenario with constant or ramping virtual users, checks and
thresholds. The run fails (exit code 1) when a threshold is breached.

Built-in scenario (see "shopcheck scenarios"):
  shopcheck load --scenario fakestore-load

Config file mode:
  shopcheck load --config test.yaml

Quick CLI mode (single GET request):
  shopcheck load --url https://fakestoreapi.com/products \
    --executor ramping-vus \
    --stages "30s:10,2m:10,30s:0"

BASE_URL (or --base-url) replaces settings.baseUrl.`,
	RunE: runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	scenario, _ := cmd.Flags().GetString("scenario")
	target, _ := cmd.Flags().GetString("url")
	baseURL, _ := cmd.Flags().GetString("base-url")
	outputPath, _ := cmd.Flags().GetString("output")
	htmlPath, _ := cmd.Flags().GetString("html")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	noColor, _ := cmd.Flags().GetBool("no-color")

	executorType, _ := cmd.Flags().GetString("executor")
	duration, _ := cmd.Flags().GetString("duration")
	vus, _ := cmd.Flags().GetInt("vus")
	stages, _ := cmd.Flags().GetString("stages")

	var testConfig *config.TestConfig
	var err error
	switch {
	case configFile != "":
		testConfig, err = config.LoadConfig(configFile)
	case scenario != "":
		testConfig, err = config.LoadBuiltin(scenario)
	case target != "":
		testConfig, err = buildConfigFromCLI(target, executorType, duration, vus, stages)
	default:
		return fmt.Errorf("one of --config, --scenario or --url is required")
	}
	if err != nil {
		return err
	}

	config.ApplyEnv(testConfig)
	if baseURL != "" {
		testConfig.Settings.BaseURL = strings.TrimRight(baseURL, "/")
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	eng, err := engine.NewEngine(testConfig, engine.WithLogger(logger))
	if err != nil {
		return err
	}

	// JSON on stdout must stay parseable, so the console moves to stderr.
	consoleWriter := cmd.OutOrStdout()
	if jsonOutput && outputPath == "" {
		consoleWriter = cmd.ErrOrStderr()
	}
	totalDuration, _ := testConfig.TotalDuration()
	console := loadoutput.NewConsoleOutput(loadoutput.ConsoleOutputConfig{
		TestName:      testConfig.Name,
		ExecutorType:  displayExecutor(testConfig),
		TotalDuration: totalDuration,
		Writer:        consoleWriter,
		Quiet:         quiet,
		NoColor:       noColor,
	})

	if metricsAddr != "" {
		srv, err := loadoutput.NewMetricsServer(metricsAddr, eng.Metrics(), eng.RunID(), logger)
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		srv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console.PrintHeader()

	watchCtx, stopWatch := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		console.Watch(watchCtx, eng, loadoutput.DefaultUpdateInterval)
	}()

	result, runErr := eng.Run(ctx)
	stopWatch()
	wg.Wait()

	if result == nil {
		return fmt.Errorf("run load test: %w", runErr)
	}
	if runErr != nil {
		logger.Error("load test finished with errors", zap.Error(runErr))
	}

	console.PrintSummary(result)

	switch {
	case outputPath != "":
		if err := loadoutput.WriteJSONFile(outputPath, result); err != nil {
			return err
		}
		fmt.Fprintf(consoleWriter, "Results written to: %s\n", outputPath)
	case jsonOutput:
		if err := loadoutput.WriteJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	}

	if htmlPath != "" {
		if err := loadoutput.GenerateHTML(result, htmlPath); err != nil {
			return err
		}
		fmt.Fprintf(consoleWriter, "Report: %s\n", htmlPath)
	}

	if runErr != nil {
		return fmt.Errorf("run load test: %w", runErr)
	}
	if !result.Passed {
		return fmt.Errorf("%w: %d of %d thresholds breached", ErrFailed, failedThresholds(result), len(result.Thresholds))
	}
	return nil
}

func failedThresholds(result *engine.TestResult) int {
	n := 0
	for _, t := range result.Thresholds {
		if !t.Passed {
			n++
		}
	}
	return n
}

// displayExecutor names the executor of the first scenario, or "mixed" when
// scenarios use different executors.
func displayExecutor(cfg *config.TestConfig) string {
	executor := ""
	for _, name := range cfg.ScenarioNames() {
		e := cfg.Scenarios[name].Executor
		switch {
		case executor == "":
			executor = e
		case executor != e:
			return "mixed"
		}
	}
	return executor
}

// buildConfigFromCLI builds a TestConfig with one scenario issuing GET url.
func buildConfigFromCLI(target, executorType, duration string, vus int, stages string) (*config.TestConfig, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid --url %q: want an absolute http(s) URL", target)
	}

	// Default executor type
	if executorType == "" {
		executorType = "constant-vus"
		if stages != "" {
			executorType = "ramping-vus"
		}
	}

	// Default VUs
	if vus == 0 && executorType == "constant-vus" {
		vus = 10
	}

	// Default duration for non-stage executors
	if duration == "" && stages == "" {
		duration = "30s"
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	scenario := &config.ScenarioConfig{
		Executor: executorType,
		VUs:      vus,
		Duration: duration,
		Requests: []config.RequestConfig{
			{
				Name:   "cli-request",
				Method: "GET",
				URL:    target,
				Tags:   map[string]string{"endpoint": "GET " + path},
			},
		},
	}

	// Parse stages if provided
	if stages != "" {
		parsedStages, err := parseStages(stages)
		if err != nil {
			return nil, fmt.Errorf("invalid stages format: %w", err)
		}
		scenario.Stages = parsedStages
		if executorType == "ramping-vus" {
			scenario.Duration = ""
		}
	}

	return &config.TestConfig{
		Name:        "CLI Test",
		Description: fmt.Sprintf("Test generated from CLI flags for %s", target),
		Settings:    config.GlobalSettings{BaseURL: u.Scheme + "://" + u.Host},
		Scenarios: map[string]*config.ScenarioConfig{
			"cli-test": scenario,
		},
	}, nil
}

// parseStages parses stages from CLI format "30s:10,2m:10,30s:0"
func parseStages(stagesStr string) ([]config.StageConfig, error) {
	var stages []config.StageConfig

	parts := strings.Split(stagesStr, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// Parse "duration:target" format
		colonIdx := strings.LastIndex(part, ":")
		if colonIdx == -1 {
			return nil, fmt.Errorf("stage %d: expected 'duration:target' format, got '%s'", i+1, part)
		}

		durationStr := part[:colonIdx]
		targetStr := part[colonIdx+1:]

		d, err := config.ParseDurationString(durationStr)
		if err != nil {
			return nil, fmt.Errorf("stage %d: invalid duration '%s': %w", i+1, durationStr, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("stage %d: duration must be greater than 0", i+1)
		}

		target, err := strconv.Atoi(targetStr)
		if err != nil {
			return nil, fmt.Errorf("stage %d: invalid target '%s': %w", i+1, targetStr, err)
		}
		if target < 0 {
			return nil, fmt.Errorf("stage %d: target cannot be negative", i+1)
		}

		stages = append(stages, config.StageConfig{
			Duration: durationStr,
			Target:   target,
			Name:     fmt.Sprintf("stage-%d", i+1),
		})
	}

	if len(stages) == 0 {
		return nil, fmt.Errorf("at least one stage is required")
	}

	return stages, nil
}

func init() {
	loadCmd.Flags().StringP("config", "c", "", "Scenario file (YAML or JSON)")
	loadCmd.Flags().StringP("scenario", "s", "", "Built-in scenario name")
	loadCmd.Flags().String("url", "", "URL to GET (alternative to --config)")
	loadCmd.Flags().String("base-url", "", "Override settings.baseUrl (takes precedence over BASE_URL)")

	// Quick mode flags
	loadCmd.Flags().String("executor", "", "Executor type: constant-vus or ramping-vus")
	loadCmd.Flags().Int("vus", 0, "Number of virtual users")
	loadCmd.Flags().String("duration", "", "Test duration (e.g., 5m, 30s)")
	loadCmd.Flags().String("stages", "", "Stages in format 'duration:target,duration:target,...' for ramping-vus")

	// Reporting flags
	loadCmd.Flags().Bool("json", false, "Write the result as JSON to stdout")
	loadCmd.Flags().StringP("output", "o", "", "Write the JSON result to a file")
	loadCmd.Flags().String("html", "", "Write an HTML report to this file")
	loadCmd.Flags().BoolP("quiet", "q", false, "Disable live progress output, show only the verdict")
	loadCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address during the run (e.g. :9464)")
}
