// Package engine runs a scenario file: one executor per scenario, a shared
// metrics engine and threshold evaluation at the end.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wesleyorama2/shopcheck/internal/load"
	"github.com/wesleyorama2/shopcheck/internal/load/config"
	"github.com/wesleyorama2/shopcheck/internal/load/executor"
	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

// Engine orchestrates one load test run.
//
//	cfg, _ := config.LoadBuiltin("fakestore-load")
//	eng, _ := engine.NewEngine(cfg, engine.WithLogger(logger))
//	result, _ := eng.Run(ctx)
//	fmt.Println(result.Passed)
//
// An Engine runs once.
type Engine struct {
	config     *config.TestConfig
	thresholds []*config.Threshold
	logger     *zap.Logger
	runID      string

	metricsEngine *metrics.Engine
	httpConfig    load.HTTPClientConfig

	scenarios map[string]*ScenarioRunner
	order     []string
	mu        sync.RWMutex

	startTime time.Time
	running   bool
	ran       bool
}

// ScenarioRunner ties a scenario to its executor and scheduler.
type ScenarioRunner struct {
	Name      string
	Config    *config.ScenarioConfig
	ExecSpec  *executor.Config
	Executor  executor.Executor
	Scheduler *load.VUScheduler
	Scenario  *load.Scenario
	Result    *ScenarioResult
}

// ScenarioResult contains the results of a single scenario.
type ScenarioResult struct {
	Name         string                  `json:"name"`
	Executor     string                  `json:"executor"`
	StartDelay   time.Duration           `json:"startDelay"`
	Duration     time.Duration           `json:"duration"`
	Iterations   int64                   `json:"iterations"`
	VUsSpawned   int                     `json:"vusSpawned"`
	RequestStats map[string]RequestStats `json:"requestStats,omitempty"`
	Skipped      bool                    `json:"skipped,omitempty"`
	Error        error                   `json:"-"`
}

// RequestStats contains statistics for one named request.
type RequestStats struct {
	Name    string               `json:"name"`
	Count   int64                `json:"count"`
	Latency metrics.LatencyStats `json:"latency"`
}

// TestResult contains the complete test results.
type TestResult struct {
	RunID       string        `json:"runId"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	Duration    time.Duration `json:"duration"`

	Scenarios map[string]*ScenarioResult `json:"scenarios"`

	Metrics    *metrics.Snapshot     `json:"metrics"`
	TagStats   []metrics.TagStats    `json:"tagStats,omitempty"`
	Checks     []metrics.CheckStats  `json:"checks,omitempty"`
	TimeSeries []*metrics.TimeBucket `json:"timeSeries,omitempty"`

	// Passed is false when any threshold failed.
	Passed     bool              `json:"passed"`
	Thresholds []ThresholdResult `json:"thresholds,omitempty"`

	// Interrupted is set when the run context was cancelled early.
	Interrupted bool `json:"interrupted,omitempty"`

	Error error `json:"-"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetricsConfig replaces the default metrics engine configuration.
func WithMetricsConfig(cfg metrics.EngineConfig) Option {
	return func(e *Engine) {
		e.metricsEngine = metrics.NewEngineWithConfig(cfg)
	}
}

// NewEngine validates cfg and prepares a run on a copy of it with defaults
// applied. cfg itself is not modified.
func NewEngine(cfg *config.TestConfig, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = cfg.Clone()
	config.ApplyDefaults(cfg)

	thresholds, err := cfg.ParsedThresholds()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	httpConfig := load.DefaultHTTPClientConfig()
	httpConfig.Timeout = cfg.Settings.Timeout.GetDuration(httpConfig.Timeout)
	if cfg.Settings.MaxIdleConnsPerHost > 0 {
		httpConfig.MaxIdleConnsPerHost = cfg.Settings.MaxIdleConnsPerHost
	}
	httpConfig.MaxConnsPerHost = cfg.Settings.MaxConnectionsPerHost
	httpConfig.InsecureSkipVerify = cfg.Settings.InsecureSkipVerify
	httpConfig.UseSharedClient = !cfg.Options.NoVUConnectionReuse

	e := &Engine{
		config:     cfg,
		thresholds: thresholds,
		logger:     zap.NewNop(),
		runID:      uuid.NewString(),
		httpConfig: httpConfig,
		scenarios:  make(map[string]*ScenarioRunner),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metricsEngine == nil {
		e.metricsEngine = metrics.NewEngine()
	}
	e.logger = e.logger.With(zap.String("run", e.runID))
	return e, nil
}

// Run executes every scenario and evaluates thresholds.
//
// Scenarios run concurrently, each after its startTime, unless
// Options.Sequential is set. Cancelling ctx stops all scenarios gracefully;
// the partial result is still returned.
func (e *Engine) Run(ctx context.Context) (*TestResult, error) {
	e.mu.Lock()
	if e.running || e.ran {
		e.mu.Unlock()
		return nil, errors.New("engine has already been run")
	}
	e.running = true
	e.startTime = time.Now()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.ran = true
		e.mu.Unlock()
	}()

	if err := e.initializeScenarios(ctx); err != nil {
		e.metricsEngine.Stop()
		return nil, fmt.Errorf("failed to initialize scenarios: %w", err)
	}

	e.logger.Info("load test started",
		zap.String("name", e.config.Name),
		zap.Strings("scenarios", e.order),
		zap.Bool("sequential", e.config.Options.Sequential))

	var (
		results map[string]*ScenarioResult
		runErr  error
	)
	if e.config.Options.Sequential {
		results, runErr = e.runScenariosSequentially(ctx)
	} else {
		results, runErr = e.runScenariosConcurrently(ctx)
	}

	e.metricsEngine.SetPhase(metrics.PhaseDone)
	e.metricsEngine.Stop()

	snapshot := e.metricsEngine.GetSnapshot()
	thresholdResults := EvaluateThresholds(e.thresholds, e.metricsEngine)
	passed := true
	for _, tr := range thresholdResults {
		if !tr.Passed {
			passed = false
			e.logger.Warn("threshold failed",
				zap.String("metric", tr.Metric),
				zap.String("expression", tr.Expression),
				zap.String("value", tr.Value))
		}
	}

	end := time.Now()
	result := &TestResult{
		RunID:       e.runID,
		Name:        e.config.Name,
		Description: e.config.Description,
		StartTime:   e.startTime,
		EndTime:     end,
		Duration:    end.Sub(e.startTime),
		Scenarios:   results,
		Metrics:     snapshot,
		TagStats:    e.metricsEngine.GetAllTagStats(),
		Checks:      e.metricsEngine.GetCheckStats(),
		TimeSeries:  e.metricsEngine.GetTimeSeries(),
		Passed:      passed,
		Thresholds:  thresholdResults,
		Interrupted: ctx.Err() != nil,
		Error:       runErr,
	}

	e.logger.Info("load test finished",
		zap.Duration("duration", result.Duration),
		zap.Int64("requests", snapshot.TotalRequests),
		zap.Bool("passed", passed),
		zap.Bool("interrupted", result.Interrupted))

	return result, runErr
}

// initializeScenarios creates executors and schedulers in name order.
func (e *Engine) initializeScenarios(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, name := range e.config.ScenarioNames() {
		sc := e.config.Scenarios[name]

		scenario, err := e.buildScenario(name, sc)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", name, err)
		}

		exec, execConfig, err := executor.CreateExecutorFromScenarioConfig(ctx, name, sc, e.logger)
		if err != nil {
			return fmt.Errorf("failed to create executor for scenario %s: %w", name, err)
		}

		scheduler := load.NewVUScheduler(scenario, e.metricsEngine, e.httpConfig,
			e.logger.With(zap.String("scenario", name)))

		e.scenarios[name] = &ScenarioRunner{
			Name:      name,
			Config:    sc,
			ExecSpec:  execConfig,
			Executor:  exec,
			Scheduler: scheduler,
			Scenario:  scenario,
		}
		e.order = append(e.order, name)
	}
	return nil
}

// runScenariosConcurrently starts every scenario after its startTime.
func (e *Engine) runScenariosConcurrently(ctx context.Context) (map[string]*ScenarioResult, error) {
	results := make(map[string]*ScenarioResult, len(e.order))
	var resultsMu sync.Mutex

	var g errgroup.Group
	for _, name := range e.order {
		runner := e.scenarios[name]
		g.Go(func() error {
			var result *ScenarioResult
			var err error
			if waitFor(ctx, runner.ExecSpec.StartTime) {
				result, err = e.runScenario(ctx, runner)
			} else {
				result = e.skipScenario(runner)
			}

			resultsMu.Lock()
			results[name] = result
			resultsMu.Unlock()

			if err != nil {
				return fmt.Errorf("scenario %s failed: %w", name, err)
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// runScenariosSequentially runs scenarios one at a time in name order,
// ignoring startTime.
func (e *Engine) runScenariosSequentially(ctx context.Context) (map[string]*ScenarioResult, error) {
	results := make(map[string]*ScenarioResult, len(e.order))

	for _, name := range e.order {
		runner := e.scenarios[name]
		if ctx.Err() != nil {
			results[name] = e.skipScenario(runner)
			continue
		}

		result, err := e.runScenario(ctx, runner)
		results[name] = result
		if err != nil {
			return results, fmt.Errorf("scenario %s failed: %w", name, err)
		}
	}
	return results, nil
}

// waitFor sleeps for d and reports whether ctx is still live.
func waitFor(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) skipScenario(runner *ScenarioRunner) *ScenarioResult {
	e.logger.Info("scenario skipped", zap.String("scenario", runner.Name))
	result := &ScenarioResult{
		Name:       runner.Name,
		Executor:   string(runner.Executor.Type()),
		StartDelay: runner.ExecSpec.StartTime,
		Skipped:    true,
	}
	runner.Result = result
	return result
}

// runScenario runs one executor to completion and releases its VUs.
func (e *Engine) runScenario(ctx context.Context, runner *ScenarioRunner) (*ScenarioResult, error) {
	spec := runner.ExecSpec
	e.logger.Info("scenario started",
		zap.String("scenario", runner.Name),
		zap.String("executor", string(spec.Type)),
		zap.Int("vus", spec.VUs),
		zap.Int("stages", len(spec.Stages)),
		zap.Duration("duration", spec.TotalDuration()))

	start := time.Now()
	err := runner.Executor.Run(ctx, runner.Scheduler, e.metricsEngine)
	duration := time.Since(start)

	runner.Scheduler.Shutdown(spec.GracefulStop)

	stats := runner.Executor.GetStats()
	result := &ScenarioResult{
		Name:         runner.Name,
		Executor:     string(runner.Executor.Type()),
		StartDelay:   spec.StartTime,
		Duration:     duration,
		Iterations:   stats.Iterations,
		VUsSpawned:   runner.Scheduler.TotalSpawned(),
		RequestStats: e.requestStats(runner.Scenario),
		Error:        err,
	}
	runner.Result = result

	e.logger.Info("scenario finished",
		zap.String("scenario", runner.Name),
		zap.Duration("duration", duration),
		zap.Int64("iterations", stats.Iterations),
		zap.Int("vus", result.VUsSpawned),
		zap.Error(err))
	return result, err
}

// requestStats returns the latency of scenario's own requests.
func (e *Engine) requestStats(scenario *load.Scenario) map[string]RequestStats {
	all := e.metricsEngine.GetRequestStats()
	out := make(map[string]RequestStats, len(scenario.Requests))
	for _, req := range scenario.Requests {
		if ls, ok := all[req.Name]; ok {
			out[req.Name] = RequestStats{Name: req.Name, Count: ls.Count, Latency: ls}
		}
	}
	return out
}

// GetConfig returns the test configuration.
func (e *Engine) GetConfig() *config.TestConfig {
	return e.config
}

// RunID identifies this run in logs and reports.
func (e *Engine) RunID() string {
	return e.runID
}

// Metrics returns the shared metrics engine. It is live from NewEngine
// until Run returns.
func (e *Engine) Metrics() *metrics.Engine {
	return e.metricsEngine
}

// GetMetrics returns the current metrics snapshot.
func (e *Engine) GetMetrics() *metrics.Snapshot {
	return e.metricsEngine.GetSnapshot()
}

// IsRunning returns true while Run is in progress.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Stop gracefully stops every running scenario.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.RLock()
	if !e.running {
		e.mu.RUnlock()
		return nil
	}
	runners := make([]*ScenarioRunner, 0, len(e.scenarios))
	for _, r := range e.scenarios {
		runners = append(runners, r)
	}
	e.mu.RUnlock()

	var errs []error
	for _, runner := range runners {
		if err := runner.Executor.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("scenario %s: %w", runner.Name, err))
		}
	}
	return errors.Join(errs...)
}

// GetProgress returns progress over the whole run (0.0 to 1.0), based on
// the configured total duration.
func (e *Engine) GetProgress() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.startTime.IsZero() {
		return 0.0
	}
	if e.ran {
		return 1.0
	}
	total, err := e.config.TotalDuration()
	if err != nil || total == 0 {
		return 0.0
	}
	return min(float64(time.Since(e.startTime))/float64(total), 1.0)
}

// GetScenarioStats returns current stats for all scenarios.
func (e *Engine) GetScenarioStats() map[string]*executor.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := make(map[string]*executor.Stats, len(e.scenarios))
	for name, runner := range e.scenarios {
		stats[name] = runner.Executor.GetStats()
	}
	return stats
}
