package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/load/config"
)

// NewExecutor creates an uninitialized executor of the given type. Call
// Init before Run.
func NewExecutor(executorType Type, logger *zap.Logger) (Executor, error) {
	switch executorType {
	case TypeConstantVUs:
		return NewConstantVUs(logger), nil
	case TypeRampingVUs:
		return NewRampingVUs(logger), nil
	default:
		return nil, fmt.Errorf("unknown executor type: %s", executorType)
	}
}

// CreateAndInitExecutor combines NewExecutor and Init.
func CreateAndInitExecutor(ctx context.Context, cfg *Config, logger *zap.Logger) (Executor, error) {
	exec, err := NewExecutor(cfg.Type, logger)
	if err != nil {
		return nil, err
	}

	if err := exec.Init(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize executor: %w", err)
	}
	return exec, nil
}

// CreateExecutorFromScenarioConfig builds and initializes the executor for
// one scenario of a scenario file.
func CreateExecutorFromScenarioConfig(ctx context.Context, name string, sc *config.ScenarioConfig, logger *zap.Logger) (Executor, *Config, error) {
	execConfig, err := ConfigFromScenario(name, sc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert scenario config: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	exec, err := CreateAndInitExecutor(ctx, execConfig, logger.With(zap.String("scenario", name)))
	if err != nil {
		return nil, nil, err
	}
	return exec, execConfig, nil
}

// ConfigFromScenario converts a parsed scenario into an executor Config.
func ConfigFromScenario(name string, sc *config.ScenarioConfig) (*Config, error) {
	ec, err := config.ConvertToExecutorConfig(name, sc)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Name:         ec.Name,
		Type:         Type(ec.Type),
		VUs:          ec.VUs,
		Duration:     ec.Duration,
		StartVUs:     ec.StartVUs,
		GracefulStop: ec.GracefulStop,
		StartTime:    ec.StartTime,
	}
	for _, s := range ec.Stages {
		cfg.Stages = append(cfg.Stages, Stage{Duration: s.Duration, Target: s.Target, Name: s.Name})
	}
	if ec.Pacing != nil {
		cfg.Pacing = &PacingConfig{
			Type:     PacingType(ec.Pacing.Type),
			Duration: ec.Pacing.Duration,
			Min:      ec.Pacing.Min,
			Max:      ec.Pacing.Max,
		}
	}
	return cfg, nil
}
