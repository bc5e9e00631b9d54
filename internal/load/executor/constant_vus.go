package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/load"
	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

// ConstantVUs runs a fixed number of VUs for a duration.
//
// Each VU loops over the scenario's requests as fast as it can (closed
// model), sleeping for the pacing interval between iterations.
type ConstantVUs struct {
	base
}

// NewConstantVUs creates a constant VUs executor. A nil logger discards
// output.
func NewConstantVUs(logger *zap.Logger) *ConstantVUs {
	e := &ConstantVUs{}
	e.init(logger)
	return e
}

// Type returns the executor type.
func (e *ConstantVUs) Type() Type {
	return TypeConstantVUs
}

// Init initializes the executor with configuration.
func (e *ConstantVUs) Init(ctx context.Context, config *Config) error {
	if config.Type != TypeConstantVUs {
		return fmt.Errorf("invalid config type: expected %s, got %s", TypeConstantVUs, config.Type)
	}
	if err := config.Validate(); err != nil {
		return err
	}

	e.config = config
	return nil
}

// Run spawns every VU at once and keeps them running for Duration.
func (e *ConstantVUs) Run(ctx context.Context, scheduler *load.VUScheduler, metricsEngine *metrics.Engine) error {
	if e.config == nil {
		return fmt.Errorf("executor not initialized")
	}
	e.start(scheduler, metricsEngine)
	defer e.finish()

	iterCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.metrics.SetPhase(metrics.PhaseSteady)
	e.logger.Debug("spawning VUs",
		zap.String("executor", e.config.Name),
		zap.Int("vus", e.config.VUs),
		zap.Duration("duration", e.config.Duration))

	for i := 0; i < e.config.VUs; i++ {
		vu := scheduler.SpawnVU()
		e.wg.Add(1)
		go e.runVU(iterCtx, vu, false)
	}
	scheduler.UpdateMetrics()

	e.wait(ctx, e.config.Duration)
	e.shutdown(cancel)
	return nil
}

// GetStats returns executor statistics.
func (e *ConstantVUs) GetStats() *Stats {
	s := e.baseStats()
	if e.config != nil {
		s.TargetVUs = e.config.VUs
	}
	return s
}

var _ Executor = (*ConstantVUs)(nil)
